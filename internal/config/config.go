package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for termagent.
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Provider ProviderConfig `yaml:"provider"`
	Agent    AgentConfig    `yaml:"agent"`
	Tools    ToolsConfig    `yaml:"tools"`
	Audit    AuditConfig    `yaml:"audit"`
	UI       UIConfig       `yaml:"ui"`
}

type GeneralConfig struct {
	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile,omitempty"` // optional JSON log file
}

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	Name           string  `yaml:"name"` // gemini | openai | ollama
	Model          string  `yaml:"model,omitempty"`
	APIBase        string  `yaml:"apiBase,omitempty"`
	APIKeyEnv      string  `yaml:"apiKeyEnv"`
	APIKey         string  `yaml:"apiKey,omitempty"` // takes precedence over apiKeyEnv
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	MaxTokens      int     `yaml:"maxTokens,omitempty"`
	Temperature    float64 `yaml:"temperature,omitempty"`
}

// RequiresKey reports whether the provider needs an API key. A local Ollama
// server does not.
func (p ProviderConfig) RequiresKey() bool { return p.Name != "ollama" }

type AgentConfig struct {
	MaxIterations   int `yaml:"maxIterations"`
	HistoryInPrompt int `yaml:"historyInPrompt"`
}

type ToolsConfig struct {
	Shell ShellToolConfig `yaml:"shell"`
}

type ShellToolConfig struct {
	Shell          string `yaml:"shell,omitempty"` // empty: sh, or cmd on Windows
	MaxOutputBytes int    `yaml:"maxOutputBytes"`  // -1 disables truncation
}

// AuditConfig enables the SQLite trail of tool executions.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"dbPath"`
}

type UIConfig struct {
	Markdown bool `yaml:"markdown"`
	Color    bool `yaml:"color"`
	History  bool `yaml:"history"` // persist prompt line history across runs
}

// DefaultConfigDir returns the default config directory (~/.termagent).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".termagent"
	}
	return filepath.Join(home, ".termagent")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Load reads, expands and validates the config file at path. JSON files are
// accepted as well since JSON is valid YAML.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadRaw reads the config file over Defaults without expanding ${VAR}
// references or ~/ paths, so an edited config can be saved back as written.
// The result is not validated.
func LoadRaw(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Defaults when the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Defaults()
		expandPaths(cfg)
		return cfg, nil
	}
	return cfg, err
}

// Parse decodes config data over Defaults. name is used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", name, err)
	}
	expandPaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func expandPaths(cfg *Config) {
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match // keep original if no env var and no default
		}
		return val
	})
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal config: %w", err)
	}
	return data, nil
}

// Validate checks that the config has valid values. All problems are
// reported together.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	switch cfg.Provider.Name {
	case "gemini", "openai", "ollama":
	default:
		errs = append(errs, fmt.Sprintf("provider.name must be one of: gemini, openai, ollama (got %q)", cfg.Provider.Name))
	}
	if cfg.Provider.RequiresKey() && cfg.Provider.APIKey == "" && cfg.Provider.APIKeyEnv == "" {
		errs = append(errs, "provider.apiKeyEnv is required when provider.apiKey is empty")
	}
	if cfg.Provider.TimeoutSeconds < 1 {
		errs = append(errs, "provider.timeoutSeconds must be >= 1")
	}
	if cfg.Provider.MaxTokens < 0 {
		errs = append(errs, "provider.maxTokens must be >= 0")
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		errs = append(errs, "provider.temperature must be between 0 and 2")
	}

	if cfg.Agent.MaxIterations < 1 || cfg.Agent.MaxIterations > 100 {
		errs = append(errs, "agent.maxIterations must be between 1 and 100")
	}
	if cfg.Agent.HistoryInPrompt < 0 || cfg.Agent.HistoryInPrompt > 5 {
		errs = append(errs, "agent.historyInPrompt must be between 0 and 5")
	}
	if cfg.Tools.Shell.MaxOutputBytes < -1 {
		errs = append(errs, "tools.shell.maxOutputBytes must be -1 (unlimited) or >= 0")
	}
	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath is required when audit is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
