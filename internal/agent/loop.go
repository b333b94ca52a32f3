package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"termagent/internal/domain"
	"termagent/internal/session"
	"termagent/internal/tool"
)

const (
	defaultMaxIterations = 10
	maxAuditDetail       = 4096

	toolNotFoundObservation = "Tool execution failed: Tool not found"
	noOutputObservation     = "Tool executed successfully but returned no output."
	executeCommandMarker    = "Action: execute_command"
)

// Observer receives progress notifications while a request is processed.
type Observer interface {
	ToolStarted(name, input string)
	ToolFinished(name, observation string)
	ForcingConclusion()
}

// Loop drives the ReAct exchange for one request at a time: prompt the model,
// parse its reply, run the requested tool, feed the observation back, and stop
// on a final answer or when the iteration budget is spent.
type Loop struct {
	provider      domain.Provider
	tools         *tool.Registry
	prompt        *PromptBuilder
	observer      Observer
	audit         domain.AuditLogger
	logger        *slog.Logger
	maxIterations int
	model         string
	maxTokens     int
	temperature   float64
}

// LoopConfig holds all dependencies and tuning parameters for the agent loop.
type LoopConfig struct {
	Provider        domain.Provider
	Tools           *tool.Registry
	Observer        Observer           // optional
	Audit           domain.AuditLogger // optional
	Logger          *slog.Logger
	MaxIterations   int
	HistoryInPrompt int // recent commands quoted per request; <0 uses the default
	Model           string
	MaxTokens       int
	Temperature     float64
}

// NewLoop creates a new agent loop with the given configuration.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		provider:      cfg.Provider,
		tools:         cfg.Tools,
		prompt:        NewPromptBuilder(cfg.Tools.Catalogue(), cfg.HistoryInPrompt),
		observer:      cfg.Observer,
		audit:         cfg.Audit,
		logger:        cfg.Logger,
		maxIterations: cfg.MaxIterations,
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
	}
}

// SetObserver replaces the progress observer.
func (l *Loop) SetObserver(o Observer) { l.observer = o }

// Step is one entry of the agent transcript shown to the user.
type Step struct {
	Role    string // assistant: model reply; user: observation or directive
	Content string
}

// Result is the outcome of one request.
type Result struct {
	ResponseText     string
	Steps            []Step
	CommandsExecuted []string
	Conversation     []domain.Message
	Iterations       int
	Forced           bool
	Usage            domain.Usage // summed over every model call
}

// AgentSteps returns the raw text of every step in order.
func (r *Result) AgentSteps() []string {
	out := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Content
	}
	return out
}

// ThinkingSteps returns only the model-authored steps.
func (r *Result) ThinkingSteps() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Role == domain.RoleAssistant {
			out = append(out, s.Content)
		}
	}
	return out
}

// exchange is the per-request conversation state.
type exchange struct {
	loop   *Loop
	logger *slog.Logger
	wire   []domain.Message // what the provider sees
	result *Result
}

// send appends text as a user turn, asks the model, and records its reply.
func (x *exchange) send(ctx context.Context, sent, recorded string) (string, error) {
	x.wire = append(x.wire, domain.Message{Role: domain.RoleUser, Content: sent})
	x.result.Conversation = append(x.result.Conversation, domain.Message{Role: domain.RoleUser, Content: recorded})

	start := time.Now()
	resp, err := x.loop.provider.Chat(ctx, domain.ChatRequest{
		Messages:    x.wire,
		Model:       x.loop.model,
		MaxTokens:   x.loop.maxTokens,
		Temperature: x.loop.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}
	latency := resp.LatencyMs
	if latency <= 0 {
		latency = time.Since(start).Milliseconds()
	}
	x.logger.Debug("model replied",
		"provider", x.loop.provider.Name(),
		"latency_ms", latency,
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"len", len(resp.Content),
		"turns", len(x.wire),
	)
	x.result.Usage.PromptTokens += resp.Usage.PromptTokens
	x.result.Usage.CompletionTokens += resp.Usage.CompletionTokens
	x.result.Usage.TotalTokens += resp.Usage.TotalTokens

	x.wire = append(x.wire, domain.Message{Role: domain.RoleAssistant, Content: resp.Content})
	x.result.Conversation = append(x.result.Conversation, domain.Message{Role: domain.RoleAssistant, Content: resp.Content})
	x.result.Steps = append(x.result.Steps, Step{Role: domain.RoleAssistant, Content: resp.Content})
	return resp.Content, nil
}

// Process runs the ReAct loop for query. Tool failures become observations;
// only model call failures are returned as errors.
func (l *Loop) Process(ctx context.Context, query string, st *session.State) (*Result, error) {
	logger := l.logger
	if st != nil {
		logger = logger.With("session", st.ID)
	}

	systemPrompt := l.prompt.SystemPrompt()
	userPrompt := l.prompt.UserPrompt(query, st)

	x := &exchange{
		loop:   l,
		logger: logger,
		result: &Result{
			Conversation: []domain.Message{{Role: domain.RoleSystem, Content: systemPrompt}},
		},
	}

	logger.Info("processing request", "len", len(query))
	reply, err := x.send(ctx, OpeningMessage(systemPrompt, userPrompt), userPrompt)
	if err != nil {
		return nil, err
	}
	decision, done := Parse(reply)

	iteration := 0
	for !done && iteration < l.maxIterations {
		iteration++
		action := decision.(Action)
		logger.Debug("agent iteration", "iteration", iteration, "tool", action.Tool)

		observation := "Observation: " + l.runTool(ctx, logger, st, action)
		x.result.Steps = append(x.result.Steps, Step{Role: domain.RoleUser, Content: observation})

		reply, err = x.send(ctx, observation, observation)
		if err != nil {
			return nil, err
		}
		decision, done = Parse(reply)
	}
	x.result.Iterations = iteration

	if !done {
		logger.Warn("reached maximum iterations without final answer, forcing completion",
			"max_iterations", l.maxIterations)
		if l.observer != nil {
			l.observer.ForcingConclusion()
		}
		x.result.Forced = true
		x.result.Steps = append(x.result.Steps, Step{Role: domain.RoleUser, Content: forceConclusionPrompt})
		reply, err = x.send(ctx, forceConclusionPrompt, forceConclusionPrompt)
		if err != nil {
			return nil, err
		}
		decision, done = Parse(reply)
		if !done {
			out := strings.TrimSpace(reply)
			decision = Finish{Output: out, Log: "Forced final answer: " + out}
		}
	}

	finish := decision.(Finish)
	x.result.ResponseText = finish.Output
	for _, s := range x.result.Steps {
		if strings.Contains(s.Content, executeCommandMarker) {
			x.result.CommandsExecuted = append(x.result.CommandsExecuted, s.Content)
		}
	}
	logger.Info("request complete",
		"iterations", iteration,
		"forced", x.result.Forced,
		"total_tokens", x.result.Usage.TotalTokens,
	)
	return x.result, nil
}

// runTool resolves and executes the requested tool and returns the
// observation text.
func (l *Loop) runTool(ctx context.Context, logger *slog.Logger, st *session.State, a Action) string {
	if l.observer != nil {
		l.observer.ToolStarted(a.Tool, a.ToolInput)
	}
	start := time.Now()

	entry := domain.AuditEntry{Action: "tool_exec", ToolName: a.Tool, Command: a.ToolInput, Result: "ok"}
	var observation string
	if t := l.tools.Get(a.Tool); t == nil {
		logger.Warn("model requested unknown tool", "tool", a.Tool, "available", l.tools.Names())
		observation = toolNotFoundObservation
		entry.Action, entry.Result = "tool_missing", "not_found"
	} else {
		var failed bool
		observation, failed = invoke(ctx, t, st, a.ToolInput)
		if failed {
			logger.Warn("tool execution failed", "tool", a.Tool, "observation", observation)
			entry.Result = "error"
		}
	}
	entry.Duration = time.Since(start)

	if l.observer != nil {
		l.observer.ToolFinished(a.Tool, observation)
	}
	l.recordAudit(ctx, logger, st, entry, observation)
	return observation
}

// invoke executes t, converting errors and panics into observations.
func invoke(ctx context.Context, t tool.Tool, st *session.State, input string) (observation string, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			observation, failed = fmt.Sprintf("Error executing tool: %v", r), true
		}
	}()
	out, err := t.Execute(ctx, st, input)
	if err != nil {
		return "Error executing tool: " + err.Error(), true
	}
	return formatObservation(out), false
}

// formatObservation renders a tool result as text. Structured values are
// rendered as indented JSON.
func formatObservation(out any) string {
	switch v := out.(type) {
	case nil:
		return noOutputObservation
	case string:
		return v
	case []byte:
		return string(v)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func (l *Loop) recordAudit(ctx context.Context, logger *slog.Logger, st *session.State, entry domain.AuditEntry, observation string) {
	if l.audit == nil {
		return
	}
	if st != nil {
		entry.SessionID = st.ID
	}
	if len(observation) > maxAuditDetail {
		observation = observation[:maxAuditDetail]
	}
	entry.Details = observation
	if err := l.audit.LogAudit(ctx, entry); err != nil {
		logger.Warn("failed to write audit entry", "tool", entry.ToolName, "err", err)
	}
}
