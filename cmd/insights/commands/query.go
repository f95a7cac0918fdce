package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/insights-go/internal/cli/ui"
	"github.com/satishbabariya/insights-go/internal/cli/watch"
	"github.com/satishbabariya/insights-go/internal/config"
	"github.com/satishbabariya/insights-go/internal/core/query/sqlformat"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Manage and run stored queries",
	Long: `Stored queries are logical queries saved in the metadata database. They
are defined in YAML files and loaded with "query load".`,
}

var (
	queryRefresh    bool
	queryShowSQL    bool
	queryDataSource string
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a stored query",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	runCmd.Flags().BoolVar(&queryRefresh, "refresh", false, "Ignore cached results")
	runCmd.Flags().BoolVar(&queryShowSQL, "show-sql", false, "Print the executed SQL")

	showSQLCmd := &cobra.Command{
		Use:   "sql <name>",
		Short: "Print the SQL a stored query compiles to",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuerySQL,
	}

	loadCmd := &cobra.Command{
		Use:   "load <file-or-directory>",
		Short: "Load query definitions from YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runQueryLoad,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored queries",
		Args:  cobra.NoArgs,
		RunE:  runQueryList,
	}
	listCmd.Flags().StringVarP(&queryDataSource, "data-source", "d", "", "Only list queries of this data source")

	watchCmd := &cobra.Command{
		Use:   "watch <file-or-directory>",
		Short: "Reload query definitions whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE:  runQueryWatch,
	}

	queryCmd.AddCommand(runCmd, showSQLCmd, loadCmd, listCmd, watchCmd)
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}

	spinner := ui.Spinner(fmt.Sprintf("Running %s...", args[0]))
	exec, err := c.QueryService().RunStored(cmd.Context(), args[0], queryRefresh)
	ui.StopSpinner(spinner)
	if err != nil {
		return err
	}

	if queryShowSQL {
		ui.PrintCodeBlock(exec.FormattedSQL())
	}
	return ui.PrintResult(exec.Result.Columns, exec.DisplayRows(), exec.Elapsed, exec.Cached)
}

func runQuerySQL(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	q, err := c.QueryService().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if q.CompiledSQL == "" {
		ui.PrintWarning("%s compiles to an empty query", q.Name)
		return nil
	}
	ui.PrintCodeBlock(sqlformat.Format(q.CompiledSQL))
	return nil
}

func runQueryLoad(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	loaded, err := c.QueryService().Load(cmd.Context(), config.AppFs, args[0])
	if err != nil {
		return err
	}
	names := make([]string, len(loaded))
	for i, q := range loaded {
		names[i] = q.Name
	}
	ui.PrintSuccess("Loaded %d queries: %s", len(loaded), strings.Join(names, ", "))
	return nil
}

func runQueryList(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}
	queries, err := c.QueryService().List(cmd.Context(), queryDataSource)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		ui.PrintInfo("No stored queries")
		return nil
	}

	rows := make([][]string, len(queries))
	for i, q := range queries {
		last := "never"
		if !q.LastExecution.IsZero() {
			last = q.LastExecution.Local().Format("2006-01-02 15:04")
		}
		kind := "logical"
		if q.IsNative {
			kind = "native"
		}
		rows[i] = []string{q.Name, q.DataSource, kind, string(q.Status), last}
	}
	return ui.PrintTable([]string{"Name", "Data source", "Kind", "Status", "Last run"}, rows)
}

func runQueryWatch(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}

	ui.PrintHeader("insights", "Watching "+args[0])
	reload := func() error {
		loaded, err := c.QueryService().Load(cmd.Context(), config.AppFs, args[0])
		if err != nil {
			ui.PrintError(cmd.ErrOrStderr(), err)
			return nil
		}
		ui.PrintSuccess("Loaded %d queries", len(loaded))
		return nil
	}

	w, err := watch.NewWatcher(args[0], reload)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	settings.Watch()
	<-cmd.Context().Done()
	return nil
}
