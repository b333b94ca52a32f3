package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"termagent/internal/agent"
	"termagent/internal/audit"
	"termagent/internal/channel"
	"termagent/internal/config"
	"termagent/internal/domain"
	"termagent/internal/logging"
	"termagent/internal/provider"
	"termagent/internal/session"
	"termagent/internal/tool"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string // overridable via --config flag
	logLevel   string // overridable via --log-level flag
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "termagent",
		Short: "termagent: a ReAct agent for your terminal",
		Long: `termagent turns natural-language requests into shell commands, file reads
and directory listings. The model thinks, acts through a local tool, observes
the result, and repeats until it can give a final answer.`,
		SilenceUsage: true,
		RunE:         runREPL,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.termagent/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug | info | warn | error")

	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(versionCmd())
	return root
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file. Only an explicitly requested file must
// exist; otherwise defaults are used.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultConfigPath())
	}
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.General.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Options{Level: cfg.General.LogLevel, File: cfg.General.LogFile})
}

func providerLabel(name string) string {
	switch name {
	case "openai":
		return "OpenAI"
	case "gemini":
		return "Gemini"
	}
	return name
}

// historyFile is where readline keeps prompt history. Empty unless ui.history
// is enabled.
func historyFile(cfg *config.Config) string {
	if !cfg.UI.History {
		return ""
	}
	return filepath.Join(config.DefaultConfigDir(), "history")
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	if path, err := config.LoadDotEnv(cwd); err != nil {
		logger.Warn("could not load .env", "err", err)
	} else if path != "" {
		logger.Debug("loaded .env", "path", path)
	}

	out := cmd.OutOrStdout()
	channel.PrintBanner(out, cfg.UI.Color)

	apiKey, err := config.ResolveAPIKey(cfg)
	if errors.Is(err, config.ErrMissingAPIKey) {
		channel.PrintMissingKey(cmd.ErrOrStderr(), providerLabel(cfg.Provider.Name), cfg.Provider.APIKeyEnv, cfg.UI.Color)
		closer.Close()
		os.Exit(1)
	} else if err != nil {
		return err
	}

	st, err := session.New(cwd)
	if err != nil {
		return err
	}
	logger = logger.With("session", st.ID)

	prov, err := provider.NewFactory(cfg.Provider, apiKey, logger).DefaultProvider()
	if err != nil {
		return err
	}

	tools := tool.NewBuiltinRegistry(tool.BuiltinConfig{
		Shell: tool.ShellConfig{
			Shell:          cfg.Tools.Shell.Shell,
			MaxOutputBytes: cfg.Tools.Shell.MaxOutputBytes,
			Logger:         logger,
		},
		Logger: logger,
	})

	var auditLog domain.AuditLogger
	if cfg.Audit.Enabled {
		store, err := audit.NewSQLiteStore(cfg.Audit.DBPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		auditLog = store
	}

	loop := agent.NewLoop(agent.LoopConfig{
		Provider:        prov,
		Tools:           tools,
		Audit:           auditLog,
		Logger:          logger,
		MaxIterations:   cfg.Agent.MaxIterations,
		HistoryInPrompt: cfg.Agent.HistoryInPrompt,
		Model:           cfg.Provider.Model,
		MaxTokens:       cfg.Provider.MaxTokens,
		Temperature:     cfg.Provider.Temperature,
	})

	ui := channel.NewCLI(channel.CLIConfig{
		Agent:    loop,
		State:    st,
		Out:      out,
		Logger:   logger,
		Color:    cfg.UI.Color,
		Markdown: cfg.UI.Markdown,
	})
	loop.SetObserver(ui)

	var reader channel.LineReader
	if channel.StdinIsTerminal() {
		reader, err = channel.NewReadlineReader(ui.Prompt(), historyFile(cfg))
		if err != nil {
			return err
		}
	} else {
		reader = channel.NewScannerReader(cmd.InOrStdin(), nil, "")
	}
	ui.SetReader(reader)

	// Ctrl-C while a request runs cancels it and ends the session.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("session started", "provider", prov.Name(), "dir", st.WorkingDir)
	return ui.Run(ctx)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the termagent version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "termagent %s\n", version)
		},
	}
}
