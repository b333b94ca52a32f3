package tool

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"termagent/internal/session"
)

// FindFilesTool searches the working directory tree by name glob or path
// substring. It shells out to find(1) through execute_command so the search
// shows up in the command history.
type FindFilesTool struct {
	shell    *ExecuteCommandTool
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

func NewFindFilesTool(shell *ExecuteCommandTool, logger *slog.Logger) *FindFilesTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &FindFilesTool{shell: shell, lookPath: exec.LookPath, logger: logger}
}

func (t *FindFilesTool) Name() string { return "find_files" }
func (t *FindFilesTool) Description() string {
	return "Finds files matching a pattern. Input should be a glob pattern like '*.py' or a search term."
}

func (t *FindFilesTool) Execute(ctx context.Context, st *session.State, input string) (any, error) {
	pattern := strings.TrimSpace(input)
	t.logger.Debug("finding files", "pattern", pattern, "dir", st.WorkingDir)

	var result string
	if _, err := t.lookPath("find"); err == nil {
		result = t.shell.Run(ctx, st, findCommand(pattern))
	} else {
		t.logger.Debug("find not available, walking in-process", "err", err)
		var werr error
		result, werr = walkMatches(st.WorkingDir, pattern)
		if werr != nil {
			result = "ERROR: " + werr.Error()
		}
		st.Record("find_files "+pattern, result)
	}

	if strings.TrimSpace(result) == "" {
		return fmt.Sprintf("No files matching '%s' found in %s", pattern, st.WorkingDir), nil
	}
	return fmt.Sprintf("Files matching '%s':\n%s", pattern, result), nil
}

// findCommand mirrors `find . -type f -name P -o -path '*P*'`, sorted.
func findCommand(pattern string) string {
	return fmt.Sprintf("find . -type f -name %s -o -path %s 2>/dev/null | sort",
		shellQuote(pattern), shellQuote("*"+pattern+"*"))
}

// walkMatches applies the same predicate as findCommand without a find binary:
// regular files whose base name matches the glob, or any path containing the
// pattern.
func walkMatches(root, pattern string) (string, error) {
	if pattern == "" {
		return "", nil
	}
	var matches []string
	err := doublestar.GlobWalk(os.DirFS(root), "**", func(p string, d fs.DirEntry) error {
		if p == "." {
			return nil
		}
		rel := "./" + p
		if d.Type().IsRegular() {
			if ok, _ := doublestar.Match(pattern, path.Base(p)); ok {
				matches = append(matches, rel)
				return nil
			}
		}
		if ok, _ := doublestar.Match("**/*"+pattern+"*", rel); ok || strings.Contains(rel, pattern) {
			matches = append(matches, rel)
		}
		return nil
	}, doublestar.WithNoFollow())
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return strings.Join(matches, "\n") + "\n", nil
}
