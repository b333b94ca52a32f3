package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "warn",
		},
		Provider: ProviderConfig{
			Name:           "gemini",
			APIKeyEnv:      "GEMINI_API_KEY",
			TimeoutSeconds: 120,
		},
		Agent: AgentConfig{
			MaxIterations:   10,
			HistoryInPrompt: 3,
		},
		Tools: ToolsConfig{
			Shell: ShellToolConfig{
				MaxOutputBytes: 65536,
			},
		},
		Audit: AuditConfig{
			Enabled: false,
			DBPath:  "~/.termagent/audit.db",
		},
		UI: UIConfig{
			Markdown: false,
			Color:    true,
			History:  false,
		},
	}
}
