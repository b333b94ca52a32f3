package tool

import (
	"context"
	"log/slog"
	"strings"

	"termagent/internal/session"
)

// Tool is a named capability exposed to the model. Its description is part of
// the prompt the model sees. Execute receives the raw "Action Input" text.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, st *session.State, input string) (any, error)
}

// Registry holds the tools offered to the model, in registration order.
// Registering a name twice replaces the earlier tool (last write wins) but keeps
// its original position in the catalogue.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	} else {
		r.logger.Debug("replacing registered tool", "name", t.Name())
	}
	r.tools[t.Name()] = t
	r.logger.Debug("registered tool", "name", t.Name())
}

// Get returns the tool registered under name, or nil.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Catalogue renders "name: description" lines for the system prompt.
func (r *Registry) Catalogue() string {
	var b strings.Builder
	for _, name := range r.order {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(r.tools[name].Description())
		b.WriteByte('\n')
	}
	return b.String()
}

// BuiltinConfig configures the built-in tool set.
type BuiltinConfig struct {
	Shell  ShellConfig
	Logger *slog.Logger
}

// NewBuiltinRegistry registers execute_command, read_file, list_directory and
// find_files.
func NewBuiltinRegistry(cfg BuiltinConfig) *Registry {
	if cfg.Shell.Logger == nil {
		cfg.Shell.Logger = cfg.Logger
	}
	shell := NewExecuteCommandTool(cfg.Shell)

	reg := NewRegistry(cfg.Logger)
	reg.Register(shell)
	reg.Register(NewReadFileTool(cfg.Logger))
	reg.Register(NewListDirectoryTool(cfg.Logger))
	reg.Register(NewFindFilesTool(shell, cfg.Logger))
	return reg
}
