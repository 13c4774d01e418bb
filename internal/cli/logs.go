package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/tictactoe-go/internal/api/response"
)

func newLogsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent event log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/logs"
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}

			var result []response.LogEntry
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")

	return cmd
}
