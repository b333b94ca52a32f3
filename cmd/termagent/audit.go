package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"termagent/internal/audit"

	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	var (
		sessionID string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent tool executions from the audit database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Audit.Enabled {
				return fmt.Errorf("audit is disabled (set audit.enabled: true)")
			}
			store, err := audit.NewSQLiteStore(cfg.Audit.DBPath, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(context.Background(), sessionID, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSESSION\tTOOL\tRESULT\tDURATION\tINPUT")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.SessionID, r.ToolName, r.Result, r.Duration, oneLine(r.Command, 60))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "only show entries from this session ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	return cmd
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
