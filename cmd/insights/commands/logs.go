package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/insights-go/internal/cli/ui"
	"github.com/satishbabariya/insights-go/internal/repository"
)

var logsFilter repository.LogFilter

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the execution log",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().StringVarP(&logsFilter.DataSource, "data-source", "d", "", "Only show this data source")
	logsCmd.Flags().BoolVar(&logsFilter.FailedOnly, "failed", false, "Only show failed executions")
	logsCmd.Flags().IntVarP(&logsFilter.Limit, "limit", "n", 20, "Number of entries")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	entries, err := c.Store().Logs().List(cmd.Context(), logsFilter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.PrintInfo("No executions logged")
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed: " + e.Error
		}
		rows[i] = []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.DataSource,
			fmt.Sprintf("%.1f ms", e.ElapsedMillis()),
			fmt.Sprint(e.RowCount),
			status,
			truncate(e.Statement, 60),
		}
	}
	return ui.PrintTable([]string{"Time", "Data source", "Elapsed", "Rows", "Status", "Statement"}, rows)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
