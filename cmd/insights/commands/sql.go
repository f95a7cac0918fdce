package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/insights-go/internal/cli/ui"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <data-source> <statement>",
	Short: "Run a read-only SQL statement",
	Long: `Run a SELECT or WITH statement on a data source. Stored queries can be
referenced as tables when settings.allow_subquery is on.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSQL,
}

func init() {
	rootCmd.AddCommand(sqlCmd)
}

func runSQL(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	statement := strings.Join(args[1:], " ")

	spinner := ui.Spinner("Running statement...")
	exec, err := c.QueryService().RunSQL(cmd.Context(), args[0], statement)
	ui.StopSpinner(spinner)
	if err != nil {
		return err
	}
	return ui.PrintResult(exec.Result.Columns, exec.Result.Rows, exec.Elapsed, false)
}
