package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"termagent/internal/agent"
	"termagent/internal/session"
)

// Processor runs one natural-language request against the session.
type Processor interface {
	Process(ctx context.Context, query string, st *session.State) (*agent.Result, error)
}

// CLI is the interactive session shell: it reads requests, handles the
// built-in cd and exit commands, and renders the agent's steps and answer.
type CLI struct {
	agent  Processor
	state  *session.State
	reader LineReader
	out    io.Writer
	logger *slog.Logger
	styles *styles
	chdir  func(string) error
}

var _ agent.Observer = (*CLI)(nil)

type CLIConfig struct {
	Agent    Processor
	State    *session.State
	Reader   LineReader
	Out      io.Writer
	Logger   *slog.Logger
	Color    bool
	Markdown bool
	// Chdir changes the process working directory; defaults to os.Chdir.
	Chdir func(string) error
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Chdir == nil {
		cfg.Chdir = os.Chdir
	}
	c := &CLI{
		agent:  cfg.Agent,
		state:  cfg.State,
		reader: cfg.Reader,
		out:    cfg.Out,
		logger: cfg.Logger,
		styles: newStyles(cfg.Out, cfg.Color),
		chdir:  cfg.Chdir,
	}
	if cfg.Markdown {
		if err := c.styles.enableMarkdown(80); err != nil {
			c.logger.Warn("markdown rendering disabled", "err", err)
		}
	}
	return c
}

// Prompt returns the styled input prompt.
func (c *CLI) Prompt() string { return c.styles.prompt.Render(">>> ") }

// SetReader replaces the input source.
func (c *CLI) SetReader(r LineReader) { c.reader = r }

func (c *CLI) println(s string) { _, _ = fmt.Fprintln(c.out, s) }

// Banner prints the welcome text.
func (c *CLI) Banner() { printBanner(c.out, c.styles) }

// PrintBanner prints the welcome text to w.
func PrintBanner(w io.Writer, color bool) { printBanner(w, newStyles(w, color)) }

func printBanner(w io.Writer, st *styles) {
	for _, line := range []string{
		"Welcome to the ReAct Terminal Agent!",
		"This agent uses a ReAct-style thinking loop to solve your tasks step-by-step:",
		"• Think: Reasons about what to do next",
		"• Act: Executes commands automatically",
		"• Observe: Processes the results and continues",
	} {
		fmt.Fprintln(w, st.info.Render(line))
	}
	fmt.Fprintln(w, st.notice.Render("All commands are executed automatically and the agent can chain multiple steps together!"))
	fmt.Fprintln(w, st.notice.Render("You'll see the agent's thought process as it works on your request."))
	fmt.Fprint(w, "Type your requests in natural language. Type 'exit' to quit.\n\n")
}

// PrintMissingKey prints the diagnostic shown when no API key is configured.
func PrintMissingKey(w io.Writer, providerLabel, envVar string, color bool) {
	st := newStyles(w, color)
	fmt.Fprintln(w, st.err.Render(fmt.Sprintf("Error: %s not found in environment variables or .env file.", envVar)))
	fmt.Fprintln(w, st.notice.UnsetBold().Render(fmt.Sprintf("Please set your %s API key in a .env file or as an environment variable.", providerLabel)))
	fmt.Fprintln(w, st.notice.UnsetBold().Render(fmt.Sprintf("Example .env file content: %s=your_api_key_here", envVar)))
}

// Run reads and handles requests until the user exits, input ends, or ctx is
// cancelled.
func (c *CLI) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		if ctx.Err() != nil {
			c.println("\n" + c.styles.info.Render("Exiting Terminal Agent..."))
			return nil
		}

		line, err := c.reader.Readline()
		if errors.Is(err, ErrInterrupt) || errors.Is(err, io.EOF) {
			c.println("\n" + c.styles.info.Render("Exiting Terminal Agent..."))
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if isExit(input) {
			c.println(c.styles.info.Render("Goodbye!"))
			return nil
		}
		c.Handle(ctx, input)
	}
}

func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit", "bye":
		return true
	}
	return false
}

// Handle processes one non-empty input line. Errors and panics are reported
// to the user and never end the session.
func (c *CLI) Handle(ctx context.Context, input string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while processing request", "panic", r)
			c.printError(fmt.Errorf("%v", r))
		}
	}()

	if lower := strings.ToLower(input); lower == "cd" || strings.HasPrefix(lower, "cd ") {
		c.changeDir(strings.TrimSpace(input[2:]))
		return
	}

	c.println(c.styles.bold.Render("Processing your request..."))
	res, err := c.agent.Process(ctx, input, c.state)
	if err != nil {
		c.printError(err)
		return
	}
	c.render(res)
}

func (c *CLI) changeDir(path string) {
	dir, err := c.state.ChangeDir(path)
	if err != nil {
		c.logger.Debug("cd failed", "path", path, "err", err)
		c.println(c.styles.err.Render("Failed to change directory to: " + path))
		return
	}
	if err := c.chdir(dir); err != nil {
		c.logger.Warn("could not change process working directory", "dir", dir, "err", err)
	}
	c.println(c.styles.success.Render("Changed directory to: " + dir))
}

func (c *CLI) printError(err error) {
	c.println(c.styles.err.Render("Error processing request: " + err.Error()))
}

// render prints each model reply as a numbered step followed by the answer.
// Observations were already shown while the tools ran.
func (c *CLI) render(res *agent.Result) {
	for i, step := range res.ThinkingSteps() {
		c.println(c.styles.panel(fmt.Sprintf("Agent Thinking Step %d", i+1), step, colorBlue))
	}
	c.println(c.styles.panel("Terminal Assistant Final Response", c.styles.answer(res.ResponseText), colorGreen))
}

func (c *CLI) ToolStarted(name, input string) {
	c.println(c.styles.tool.Render("Agent is using tool: " + name))
	c.println(c.styles.tool.Render("Tool input: " + input))
}

func (c *CLI) ToolFinished(_, observation string) {
	c.println(c.styles.dim.Render("Observation:"))
	c.println(observation)
}

func (c *CLI) ForcingConclusion() {
	c.println(c.styles.notice.Render("Reached maximum iterations without final answer. Forcing completion."))
}
