package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MaxIterations(t *testing.T) {
	cfg := Defaults()

	cfg.Agent.MaxIterations = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxIterations=0")
	}
	cfg.Agent.MaxIterations = 101
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxIterations=101")
	}
	cfg.Agent.MaxIterations = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxIterations=1 should be valid: %v", err)
	}
	cfg.Agent.MaxIterations = 100
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxIterations=100 should be valid: %v", err)
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.Name = "carrier-pigeon"
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "provider.name") {
		t.Fatalf("expected provider.name error, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "loud"
	cfg.Agent.HistoryInPrompt = 9
	cfg.Tools.Shell.MaxOutputBytes = -5
	cfg.Audit.Enabled = true
	cfg.Audit.DBPath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"general.logLevel", "agent.historyInPrompt", "tools.shell.maxOutputBytes", "audit.dbPath"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error:\n%v", want, err)
		}
	}
}

func TestValidate_ApiKeySource(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.APIKeyEnv = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when neither apiKey nor apiKeyEnv is set")
	}
	cfg.Provider.APIKey = "inline"
	if err := Validate(cfg); err != nil {
		t.Fatalf("inline key should be accepted: %v", err)
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := Defaults()
	original.Provider.Name = "openai"
	original.Provider.Model = "gpt-4o-mini"
	original.Agent.MaxIterations = 4

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Provider.Name != "openai" || loaded.Provider.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected provider %+v", loaded.Provider)
	}
	if loaded.Agent.MaxIterations != 4 {
		t.Fatalf("expected maxIterations 4, got %d", loaded.Agent.MaxIterations)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got %v", err)
	}
	if cfg.Provider.Name != "gemini" {
		t.Fatalf("expected default provider, got %q", cfg.Provider.Name)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte("agent: [unclosed"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_JSONAccepted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"provider": {"name": "openai", "apiKeyEnv": "OPENAI_API_KEY"}, "agent": {"maxIterations": 7}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.Name != "openai" || cfg.Agent.MaxIterations != 7 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.Agent.HistoryInPrompt != 3 {
		t.Fatalf("expected default historyInPrompt, got %d", cfg.Agent.HistoryInPrompt)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_TERMAGENT_LOG", "/tmp/termagent-test.log")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := "general:\n  logLevel: ${TEST_TERMAGENT_LEVEL:-debug}\n  logFile: ${TEST_TERMAGENT_LOG}\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.General.LogFile != "/tmp/termagent-test.log" {
		t.Fatalf("expected substituted log file, got %q", cfg.General.LogFile)
	}
	if cfg.General.LogLevel != "debug" {
		t.Fatalf("expected default-substituted level, got %q", cfg.General.LogLevel)
	}
}

func TestLoadRaw_KeepsReferencesUnexpanded(t *testing.T) {
	t.Setenv("TERMAGENT_RAW_KEY", "plaintext-secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "provider:\n  apiKey: ${TERMAGENT_RAW_KEY}\naudit:\n  dbPath: ~/audit.db\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if cfg.Provider.APIKey != "${TERMAGENT_RAW_KEY}" {
		t.Fatalf("api key expanded: %q", cfg.Provider.APIKey)
	}
	if cfg.Audit.DBPath != "~/audit.db" {
		t.Fatalf("db path expanded: %q", cfg.Audit.DBPath)
	}
	if cfg.Agent.MaxIterations != 10 {
		t.Fatalf("defaults not applied: %d", cfg.Agent.MaxIterations)
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("agent:\n  maxIterations: 0\n"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

// --- Accessor ---

func TestGetByPath(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "provider.apiKeyEnv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "GEMINI_API_KEY" {
		t.Fatalf("expected GEMINI_API_KEY, got %v", val)
	}
	if _, err := GetByPath(cfg, "nonexistent.path"); err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "provider.model", "gemini-1.5-pro"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Provider.Model != "gemini-1.5-pro" {
		t.Fatalf("expected model to change, got %q", cfg.Provider.Model)
	}
	if err := SetByPath(cfg, "audit.enabled", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if !cfg.Audit.Enabled {
		t.Fatal("expected audit.enabled=true")
	}
	if err := SetByPath(cfg, "agent.maxIterations", "15"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Agent.MaxIterations != 15 {
		t.Fatalf("expected 15, got %d", cfg.Agent.MaxIterations)
	}
}

func TestSetByPath_InvalidLeavesConfigUntouched(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "agent.maxIterations", "0"); err == nil {
		t.Fatal("expected validation error")
	}
	if cfg.Agent.MaxIterations != 10 {
		t.Fatalf("config should be unchanged, got %d", cfg.Agent.MaxIterations)
	}
	if err := SetByPath(cfg, "", "x"); err == nil {
		t.Fatal("expected error for empty path")
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.APIKey = "AIza1234567890abcdefghijklmnop"

	sanitized := Sanitize(cfg)
	if sanitized.Provider.APIKey != "AIza****mnop" {
		t.Fatalf("API key should be masked, got %q", sanitized.Provider.APIKey)
	}
	if cfg.Provider.APIKey != "AIza1234567890abcdefghijklmnop" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.APIKey = "short"
	if got := Sanitize(cfg).Provider.APIKey; got != "***" {
		t.Fatalf("short secret should be '***', got %q", got)
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	t.Setenv("MY_PORT", "9090")
	t.Setenv("EMPTY_VAR", "")
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")

	tests := []struct {
		in, want string
	}{
		{`apiKey: ${TEST_API_KEY}`, `apiKey: sk-abc123`},
		{`port: ${TOTALLY_UNSET_VAR_XYZ:-8080}`, `port: 8080`},
		{`port: ${MY_PORT:-8080}`, `port: 9090`},
		{`${TEST_API_KEY}:${MY_PORT}`, `sk-abc123:9090`},
		{`${TOTALLY_UNSET_VAR_XYZ}`, `${TOTALLY_UNSET_VAR_XYZ}`},
		{`${EMPTY_VAR:-fallback}`, `fallback`},
		{`key: value`, `key: value`},
		{`$HOME is not substituted`, `$HOME is not substituted`},
	}
	for _, tt := range tests {
		if got := ExpandEnvVars(tt.in); got != tt.want {
			t.Fatalf("ExpandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- API key ---

func TestResolveAPIKey(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.APIKeyEnv = "TERMAGENT_TEST_KEY"

	t.Setenv("TERMAGENT_TEST_KEY", "")
	_, err := ResolveAPIKey(cfg)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	t.Setenv("TERMAGENT_TEST_KEY", " from-env ")
	key, err := ResolveAPIKey(cfg)
	if err != nil || key != "from-env" {
		t.Fatalf("got %q, %v", key, err)
	}

	cfg.Provider.APIKey = "inline"
	if key, _ := ResolveAPIKey(cfg); key != "inline" {
		t.Fatalf("inline key should win, got %q", key)
	}
}

func TestLoadDotEnv_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("TERMAGENT_DOTENV_KEY=abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TERMAGENT_DOTENV_KEY", "")
	os.Unsetenv("TERMAGENT_DOTENV_KEY")

	path, err := LoadDotEnv(nested)
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if path != filepath.Join(root, ".env") {
		t.Fatalf("unexpected path %q", path)
	}
	if got := os.Getenv("TERMAGENT_DOTENV_KEY"); got != "abc" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestLoadDotEnv_ExistingEnvWins(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ".env"), []byte("TERMAGENT_DOTENV_KEEP=file\n"), 0o644)
	t.Setenv("TERMAGENT_DOTENV_KEEP", "process")

	if _, err := LoadDotEnv(dir); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("TERMAGENT_DOTENV_KEEP"); got != "process" {
		t.Fatalf("existing variable should win, got %q", got)
	}
}

func TestResolveAPIKey_KeylessProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.Name = "ollama"
	cfg.Provider.APIKeyEnv = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("ollama without key should validate: %v", err)
	}
	key, err := ResolveAPIKey(cfg)
	if err != nil || key != "" {
		t.Fatalf("got %q, %v", key, err)
	}
}
