package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"termagent/internal/audit"
	"termagent/internal/config"

	"github.com/spf13/cobra"
)

// checkReport tallies diagnostic results.
type checkReport struct {
	out                    io.Writer
	passed, warned, failed int
}

func (r *checkReport) pass(check, detail string) {
	r.passed++
	fmt.Fprintf(r.out, "  [PASS] %-20s %s\n", check, detail)
}

func (r *checkReport) fail(check, detail string) {
	r.failed++
	fmt.Fprintf(r.out, "  [FAIL] %-20s %s\n", check, detail)
}

func (r *checkReport) warn(check, detail string) {
	r.warned++
	fmt.Fprintf(r.out, "  [WARN] %-20s %s\n", check, detail)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your termagent setup",
		Long: `Verifies that the configuration, API key, shell, and optional audit
database are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := &checkReport{out: cmd.OutOrStdout()}
			fmt.Fprintf(r.out, "termagent doctor v%s\n\n", version)

			cfgPath := config.ExpandPath(resolveConfigPath())
			if _, err := os.Stat(cfgPath); err != nil {
				r.warn("Config file", fmt.Sprintf("not found at %s (using defaults)", cfgPath))
			} else {
				r.pass("Config file", cfgPath)
			}

			cfg, err := loadConfig()
			if err != nil {
				r.fail("Config validation", err.Error())
				return r.summary()
			}
			r.pass("Config validation", "valid")

			if cwd, err := os.Getwd(); err == nil {
				if path, err := config.LoadDotEnv(cwd); err != nil {
					r.warn(".env", err.Error())
				} else if path != "" {
					r.pass(".env", path)
				}
			}

			if _, err := config.ResolveAPIKey(cfg); errors.Is(err, config.ErrMissingAPIKey) {
				r.fail("API key", fmt.Sprintf("%s is not set", cfg.Provider.APIKeyEnv))
			} else {
				r.pass("API key", "configured for "+cfg.Provider.Name)
			}

			shell := cfg.Tools.Shell.Shell
			if shell == "" {
				shell = "sh"
				if runtime.GOOS == "windows" {
					shell = "cmd"
				}
			}
			if path, err := exec.LookPath(shell); err != nil {
				r.fail("Shell", fmt.Sprintf("%s not found on PATH", shell))
			} else {
				r.pass("Shell", path)
			}

			if path, err := exec.LookPath("find"); err != nil {
				r.warn("find", "not on PATH, find_files uses the built-in walker")
			} else {
				r.pass("find", path)
			}

			if cfg.Audit.Enabled {
				if err := checkAuditDB(cfg.Audit.DBPath); err != nil {
					r.fail("Audit database", err.Error())
				} else {
					r.pass("Audit database", cfg.Audit.DBPath)
				}
			}

			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					r.warn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
				} else {
					r.pass("Log file", cfg.General.LogFile)
				}
			}

			return r.summary()
		},
	}
}

func (r *checkReport) summary() error {
	fmt.Fprintf(r.out, "\nResults: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if r.failed > 0 {
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	return nil
}

func checkAuditDB(dbPath string) error {
	store, err := audit.NewSQLiteStore(dbPath, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := store.Recent(ctx, "", 1); err != nil {
		return fmt.Errorf("not readable: %w", err)
	}
	return nil
}
