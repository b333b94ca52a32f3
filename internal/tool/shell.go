package tool

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"unicode/utf8"

	"termagent/internal/session"
)

const defaultMaxOutputBytes = 65536

// ExecuteCommandTool runs shell commands in the session working directory.
type ExecuteCommandTool struct {
	shell          string
	shellFlag      string
	maxOutputBytes int
	logger         *slog.Logger
}

type ShellConfig struct {
	Shell          string // interpreter; defaults to sh (cmd on Windows)
	MaxOutputBytes int    // <0 disables truncation
	Logger         *slog.Logger
}

func NewExecuteCommandTool(cfg ShellConfig) *ExecuteCommandTool {
	if cfg.MaxOutputBytes == 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	shell, flag := cfg.Shell, "-c"
	if runtime.GOOS == "windows" {
		flag = "/C"
		if shell == "" {
			shell = "cmd"
		}
	}
	if shell == "" {
		shell = "sh"
	}
	return &ExecuteCommandTool{
		shell:          shell,
		shellFlag:      flag,
		maxOutputBytes: cfg.MaxOutputBytes,
		logger:         cfg.Logger,
	}
}

func (t *ExecuteCommandTool) Name() string { return "execute_command" }

func (t *ExecuteCommandTool) Description() string {
	return "Executes a shell command and returns the output. Use this for running terminal commands."
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, st *session.State, input string) (any, error) {
	return t.Run(ctx, st, input), nil
}

// Run executes command and records it in the session history. Failures are
// reported in the returned text, never as an error: a non-zero exit appends
// stderr to stdout, and a command that cannot be started yields "ERROR: ...".
func (t *ExecuteCommandTool) Run(ctx context.Context, st *session.State, command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		out := "ERROR: missing command"
		st.Record(command, out)
		return out
	}

	t.logger.Debug("executing command", "command", command, "dir", st.WorkingDir)

	cmd := exec.CommandContext(ctx, t.shell, t.shellFlag, command)
	cmd.Dir = st.WorkingDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var output string
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		output = stdout.String()
	case errors.As(err, &exitErr):
		if stdout.Len() > 0 {
			output = stdout.String() + "\n" + stderr.String()
		} else {
			output = stderr.String()
		}
		t.logger.Warn("command failed", "command", command, "exit_code", exitErr.ExitCode())
	default:
		output = "ERROR: " + err.Error()
		t.logger.Error("command execution error", "command", command, "err", err)
	}

	if t.maxOutputBytes > 0 && len(output) > t.maxOutputBytes {
		output = truncateUTF8(output, t.maxOutputBytes) + "\n... (output truncated)"
	}

	st.Record(command, output)
	return output
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
