package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"termagent/internal/session"
)

// binarySniffLen is how much of a file is inspected for NUL bytes.
const binarySniffLen = 8000

// --- ReadFileTool ---

// ReadFileTool returns file contents as text.
type ReadFileTool struct {
	logger *slog.Logger
}

func NewReadFileTool(logger *slog.Logger) *ReadFileTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadFileTool{logger: logger}
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Reads the contents of a file. Input should be the path to the file."
}

func (t *ReadFileTool) Execute(ctx context.Context, st *session.State, input string) (any, error) {
	path := strings.TrimSpace(input)
	full := st.Resolve(path)
	t.logger.Debug("reading file", "path", full)

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		t.logger.Warn("file not found", "path", full)
		return "File not found: " + path, nil
	}
	if err != nil {
		return "ERROR: " + err.Error(), nil
	}
	if info.IsDir() {
		return fmt.Sprintf("ERROR: %s is a directory", full), nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		t.logger.Warn("read file failed", "path", full, "err", err)
		return "ERROR: " + err.Error(), nil
	}
	if looksBinary(data) {
		return fmt.Sprintf("Unable to read %s as text. It may be a binary file.", path), nil
	}
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
	}
	return string(data), nil
}

func looksBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// --- ListDirectoryTool ---

// ListDirectoryTool renders an ls -l style listing of a directory.
type ListDirectoryTool struct {
	logger *slog.Logger
}

func NewListDirectoryTool(logger *slog.Logger) *ListDirectoryTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListDirectoryTool{logger: logger}
}

func (t *ListDirectoryTool) Name() string { return "list_directory" }
func (t *ListDirectoryTool) Description() string {
	return "Lists the contents of a directory. Input should be the path to the directory or '.' for current directory."
}

func (t *ListDirectoryTool) Execute(ctx context.Context, st *session.State, input string) (any, error) {
	path := strings.TrimSpace(input)
	if path == "" {
		path = "."
	}
	full := st.WorkingDir
	if path != "." {
		full = st.Resolve(path)
	}
	t.logger.Debug("listing directory", "path", full)

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		t.logger.Warn("directory not found", "path", full)
		return "Directory not found: " + path, nil
	}
	if err != nil {
		return "ERROR: " + err.Error(), nil
	}
	if !info.IsDir() {
		return fmt.Sprintf("ERROR: %s is not a directory", full), nil
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return "ERROR: " + err.Error(), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s:\n", full)
	for _, e := range entries {
		b.WriteString(formatEntry(filepath.Join(full, e.Name()), e.Name()))
	}
	return b.String(), nil
}

// formatEntry renders "<type> <size> <mtime> <name>". Symlinks are followed;
// dangling ones are described by the link itself.
func formatEntry(path, name string) string {
	info, err := os.Stat(path)
	if err != nil {
		info, err = os.Lstat(path)
		if err != nil {
			return fmt.Sprintf("? %8s %s %s\n", "?", strings.Repeat("?", len(time.ANSIC)), name)
		}
	}
	kind := "-"
	if info.IsDir() {
		kind = "d"
	}
	return fmt.Sprintf("%s %8d %s %s\n", kind, info.Size(), info.ModTime().Format(time.ANSIC), name)
}

// Compile-time interface checks.
var (
	_ Tool = (*ExecuteCommandTool)(nil)
	_ Tool = (*ReadFileTool)(nil)
	_ Tool = (*ListDirectoryTool)(nil)
	_ Tool = (*FindFilesTool)(nil)
)
