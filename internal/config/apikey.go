package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when no API key is configured for the provider.
var ErrMissingAPIKey = errors.New("api key not found")

// LoadDotEnv loads the nearest .env file found by walking up from dir.
// Variables already present in the environment are not overridden. It
// returns the path that was loaded, or "" when none was found.
func LoadDotEnv(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, ".env")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			if err := godotenv.Load(p); err != nil {
				return "", fmt.Errorf("load %s: %w", p, err)
			}
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ResolveAPIKey returns provider.apiKey if set, else the value of the
// provider.apiKeyEnv variable. Keyless providers may resolve to "".
func ResolveAPIKey(cfg *Config) (string, error) {
	if k := strings.TrimSpace(cfg.Provider.APIKey); k != "" {
		return k, nil
	}
	if cfg.Provider.APIKeyEnv != "" {
		if k := strings.TrimSpace(os.Getenv(cfg.Provider.APIKeyEnv)); k != "" {
			return k, nil
		}
	}
	if !cfg.Provider.RequiresKey() {
		return "", nil
	}
	return "", fmt.Errorf("%w: %s is not set", ErrMissingAPIKey, cfg.Provider.APIKeyEnv)
}
