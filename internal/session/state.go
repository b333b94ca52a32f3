package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// State is the mutable state of one interactive session: the working directory
// tools run in and the recent command history fed back into prompts.
// It is owned by the shell and passed explicitly to the agent and its tools.
type State struct {
	ID         string
	WorkingDir string
	History    *History
}

// New creates a session rooted at dir, which must be an existing directory.
func New(dir string) (*State, error) {
	resolved := Resolve("", dir)
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working directory %s is not a directory", resolved)
	}
	return &State{
		ID:         ulid.Make().String(),
		WorkingDir: resolved,
		History:    NewHistory(DefaultHistoryCapacity),
	}, nil
}

// Resolve interprets path relative to the session working directory.
func (s *State) Resolve(path string) string {
	return Resolve(s.WorkingDir, path)
}

// ChangeDir moves the session to path (relative to the current working
// directory). The working directory is left untouched when the target does not
// exist or is not a directory.
func (s *State) ChangeDir(path string) (string, error) {
	target := s.Resolve(path)
	info, err := os.Stat(target)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", target)
	}
	s.WorkingDir = target
	return target, nil
}

// Record appends an executed command to the history.
func (s *State) Record(command, output string) {
	s.History.Add(HistoryEntry{Command: command, Output: output})
}

// Resolve joins path onto base unless it is absolute, then cleans it and
// follows symlinks when the target exists. "~/" expands to the home directory.
func Resolve(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !filepath.IsAbs(path) && base != "" {
		path = filepath.Join(base, path)
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		abs = filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}
