package channel

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"termagent/internal/agent"
	"termagent/internal/domain"
	"termagent/internal/session"
)

type fakeProcessor struct {
	queries []string
	result  *agent.Result
	err     error
	panics  bool
}

func (f *fakeProcessor) Process(_ context.Context, query string, _ *session.State) (*agent.Result, error) {
	f.queries = append(f.queries, query)
	if f.panics {
		panic("kaboom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// scriptedReader replays lines, then returns end.
type scriptedReader struct {
	lines []string
	end   error
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", r.end
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCLI(t *testing.T, p Processor, lines ...string) (*CLI, *bytes.Buffer, *session.State) {
	t.Helper()
	st, err := session.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	c := NewCLI(CLIConfig{
		Agent:  p,
		State:  st,
		Reader: &scriptedReader{lines: lines, end: io.EOF},
		Out:    &out,
		Logger: testLogger(),
		Chdir:  func(string) error { return nil },
	})
	return c, &out, st
}

func TestRun_ExitKeywords(t *testing.T) {
	for _, word := range []string{"exit", "QUIT", "Bye"} {
		p := &fakeProcessor{}
		c, out, _ := newTestCLI(t, p, word, "never reached")
		if err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !strings.Contains(out.String(), "Goodbye!") {
			t.Fatalf("%s: expected goodbye, got:\n%s", word, out.String())
		}
		if len(p.queries) != 0 {
			t.Fatalf("%s: processor should not be called", word)
		}
	}
}

func TestRun_EOFAndInterrupt(t *testing.T) {
	for _, end := range []error{io.EOF, ErrInterrupt} {
		st, _ := session.New(t.TempDir())
		var out bytes.Buffer
		c := NewCLI(CLIConfig{Agent: &fakeProcessor{}, State: st, Reader: &scriptedReader{end: end}, Out: &out, Logger: testLogger()})
		if err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !strings.Contains(out.String(), "Exiting Terminal Agent...") {
			t.Fatalf("expected exit message for %v, got:\n%s", end, out.String())
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	p := &fakeProcessor{}
	c, out, _ := newTestCLI(t, p, "list files")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(p.queries) != 0 || !strings.Contains(out.String(), "Exiting Terminal Agent...") {
		t.Fatalf("expected immediate exit, got:\n%s", out.String())
	}
}

func TestRun_SkipsBlankLines(t *testing.T) {
	p := &fakeProcessor{result: &agent.Result{ResponseText: "ok"}}
	c, _, _ := newTestCLI(t, p, "", "   ", "hello", "exit")
	if err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(p.queries) != 1 || p.queries[0] != "hello" {
		t.Fatalf("unexpected queries %v", p.queries)
	}
}

func TestHandle_ChangeDirectory(t *testing.T) {
	p := &fakeProcessor{}
	c, out, st := newTestCLI(t, p)
	sub := filepath.Join(st.WorkingDir, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	var chdirTo string
	c.chdir = func(dir string) error { chdirTo = dir; return nil }

	c.Handle(context.Background(), "CD src")

	if st.WorkingDir != sub {
		t.Fatalf("expected working dir %q, got %q", sub, st.WorkingDir)
	}
	if chdirTo != sub {
		t.Fatalf("expected process chdir to %q, got %q", sub, chdirTo)
	}
	if !strings.Contains(out.String(), "Changed directory to: "+sub) {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if len(p.queries) != 0 {
		t.Fatal("cd must not reach the model")
	}
}

func TestHandle_ChangeDirectoryFailure(t *testing.T) {
	p := &fakeProcessor{}
	c, out, st := newTestCLI(t, p)
	before := st.WorkingDir

	c.Handle(context.Background(), "cd does-not-exist")

	if st.WorkingDir != before {
		t.Fatalf("working dir changed to %q", st.WorkingDir)
	}
	if !strings.Contains(out.String(), "Failed to change directory to: does-not-exist") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if len(p.queries) != 0 {
		t.Fatal("cd must not reach the model")
	}
}

func TestHandle_RendersAssistantStepsOnly(t *testing.T) {
	p := &fakeProcessor{result: &agent.Result{
		ResponseText: "There are 2 files.",
		Steps: []agent.Step{
			{Role: domain.RoleAssistant, Content: "Thought: list\nAction: list_directory\nAction Input: ."},
			{Role: domain.RoleUser, Content: "Observation: SECRET-OBSERVATION"},
			{Role: domain.RoleAssistant, Content: "Final Answer: There are 2 files."},
		},
	}}
	c, out, _ := newTestCLI(t, p)

	c.Handle(context.Background(), "list files")

	got := out.String()
	for _, want := range []string{
		"Processing your request...",
		"Agent Thinking Step 1",
		"Agent Thinking Step 2",
		"Terminal Assistant Final Response",
		"There are 2 files.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Agent Thinking Step 3") {
		t.Fatalf("observation rendered as a step:\n%s", got)
	}
	if strings.Contains(got, "SECRET-OBSERVATION") {
		t.Fatalf("observation should not be re-rendered:\n%s", got)
	}
}

func TestRun_ErrorsDoNotEndSession(t *testing.T) {
	p := &fakeProcessor{err: errors.New("model call: quota exceeded")}
	c, out, _ := newTestCLI(t, p, "first", "second", "exit")
	if err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(p.queries) != 2 {
		t.Fatalf("expected both requests to be processed, got %v", p.queries)
	}
	if strings.Count(out.String(), "Error processing request: model call: quota exceeded") != 2 {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestHandle_RecoversPanic(t *testing.T) {
	p := &fakeProcessor{panics: true}
	c, out, _ := newTestCLI(t, p)
	c.Handle(context.Background(), "anything")
	if !strings.Contains(out.String(), "Error processing request: kaboom") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestObserverOutput(t *testing.T) {
	c, out, _ := newTestCLI(t, &fakeProcessor{})
	c.ToolStarted("execute_command", "ls -la")
	c.ToolFinished("execute_command", "total 0")
	c.ForcingConclusion()

	got := out.String()
	for _, want := range []string{
		"Agent is using tool: execute_command",
		"Tool input: ls -la",
		"Observation:",
		"total 0",
		"Forcing completion.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in output:\n%s", want, got)
		}
	}
}

func TestBanner(t *testing.T) {
	c, out, _ := newTestCLI(t, &fakeProcessor{})
	c.Banner()
	for _, want := range []string{"Welcome to the ReAct Terminal Agent!", "Think:", "Act:", "Observe:", "Type 'exit' to quit."} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("banner missing %q:\n%s", want, out.String())
		}
	}
}

func TestScannerReader(t *testing.T) {
	var prompts bytes.Buffer
	r := NewScannerReader(strings.NewReader("one\ntwo\n"), &prompts, "> ")
	for _, want := range []string{"one", "two"} {
		got, err := r.Readline()
		if err != nil || got != want {
			t.Fatalf("got %q, %v; want %q", got, err, want)
		}
	}
	if _, err := r.Readline(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if prompts.String() != "> > > " {
		t.Fatalf("unexpected prompts %q", prompts.String())
	}
}

func TestPrintMissingKey(t *testing.T) {
	var out bytes.Buffer
	PrintMissingKey(&out, "Gemini", "GEMINI_API_KEY", false)
	want := "Error: GEMINI_API_KEY not found in environment variables or .env file.\n" +
		"Please set your Gemini API key in a .env file or as an environment variable.\n" +
		"Example .env file content: GEMINI_API_KEY=your_api_key_here\n"
	if out.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}
