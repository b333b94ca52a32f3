package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"termagent/internal/domain"
)

const (
	defaultGeminiBase  = "https://generativelanguage.googleapis.com"
	defaultGeminiModel = "gemini-2.0-flash"
)

// harmCategories are relaxed to BLOCK_NONE so that shell output and file
// contents are not filtered out of observations.
var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// Gemini implements domain.Provider for the Gemini generateContent REST API.
type Gemini struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type GeminiConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Client  *http.Client
	Logger  *slog.Logger
}

func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultGeminiBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		model:   cfg.Model,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	SafetySettings    []geminiSafetySetting   `json:"safetySettings"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// toGeminiContents maps conversation turns onto Gemini roles. System turns
// become the system instruction.
func toGeminiContents(msgs []domain.Message) (*geminiContent, []geminiContent) {
	var system []string
	contents := make([]geminiContent, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}, contents
}

func (g *Gemini) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	system, contents := toGeminiContents(req.Messages)
	body := geminiRequest{
		Contents:          contents,
		SystemInstruction: system,
	}
	for _, c := range harmCategories {
		body.SafetySettings = append(body.SafetySettings, geminiSafetySetting{Category: c, Threshold: "BLOCK_NONE"})
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
		if req.Temperature > 0 {
			body.GenerationConfig.Temperature = &req.Temperature
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	u, err := url.Parse(fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.apiBase, url.PathEscape(model)))
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		// The URL carries the key; report only the transport error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gemini %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(gr.Candidates) == 0 {
		if gr.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("gemini blocked the prompt: %s", gr.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	cand := gr.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}

	out := &domain.ChatResponse{
		Content:      text.String(),
		FinishReason: strings.ToLower(cand.FinishReason),
		Usage: domain.Usage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		},
		LatencyMs: time.Since(start).Milliseconds(),
	}
	g.logger.Debug("gemini response", "model", model, "finish", out.FinishReason, "tokens", out.Usage.TotalTokens)
	return out, nil
}
