package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/insights-go/internal/adapters/database"
	"github.com/satishbabariya/insights-go/internal/cli/ui"
	"github.com/satishbabariya/insights-go/internal/config"
)

var (
	showHidden    bool
	optionsSearch string
	optionsLimit  int
	previewLimit  int
)

var datasourceCmd = &cobra.Command{
	Use:     "datasource",
	Aliases: []string{"ds"},
	Short:   "Manage data sources",
}

var datasourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured data sources",
	Args:  cobra.NoArgs,
	RunE:  runDataSourceList,
}

var datasourceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a data source interactively",
	Args:  cobra.NoArgs,
	RunE:  runDataSourceAdd,
}

var datasourceTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Check that a data source accepts connections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		spinner := ui.Spinner("Connecting to " + args[0] + "...")
		err = c.DataSourceService().Test(cmd.Context(), args[0])
		ui.StopSpinner(spinner)
		if err != nil {
			return err
		}
		ui.PrintSuccess("%s is reachable", args[0])
		return nil
	},
}

var datasourceSyncCmd = &cobra.Command{
	Use:   "sync <name> [tables...]",
	Short: "Refresh the table catalog of a data source",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		spinner := ui.Spinner("Syncing " + args[0] + "...")
		err = c.DataSourceService().Sync(cmd.Context(), args[0], args[1:])
		ui.StopSpinner(spinner)
		if err != nil {
			return err
		}
		tables, err := c.DataSourceService().Tables(cmd.Context(), args[0], true)
		if err != nil {
			return err
		}
		ui.PrintSuccess("Synced %d tables of %s", len(tables), args[0])
		return nil
	},
}

var datasourceTablesCmd = &cobra.Command{
	Use:   "tables <name>",
	Short: "List the synced tables of a data source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		tables, err := c.DataSourceService().Tables(cmd.Context(), args[0], showHidden)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			ui.PrintInfo("No tables synced for %s. Run 'insights datasource sync %s' first.", args[0], args[0])
			return nil
		}
		rows := make([][]string, len(tables))
		for i, t := range tables {
			rows[i] = []string{t.Name, t.Label, strconv.Itoa(len(t.Columns)), yesNo(t.IsQueryBased), yesNo(t.Hidden)}
		}
		return ui.PrintTable([]string{"Table", "Label", "Columns", "Query", "Hidden"}, rows)
	},
}

var datasourceColumnsCmd = &cobra.Command{
	Use:   "columns <name> <table>",
	Short: "List the columns of a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		cols, err := c.DataSourceService().Columns(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		rows := make([][]string, len(cols))
		for i, col := range cols {
			rows[i] = []string{col.Name, col.Label, string(col.Type), col.CustomSQL}
		}
		return ui.PrintTable([]string{"Column", "Label", "Type", "Expression"}, rows)
	},
}

var datasourceOptionsCmd = &cobra.Command{
	Use:   "options <name> <table> <column>",
	Short: "List distinct values of a column",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		values, err := c.DataSourceService().Options(cmd.Context(), args[0], args[1], args[2], optionsSearch, optionsLimit)
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatCell(v))
		}
		return nil
	},
}

var datasourcePreviewCmd = &cobra.Command{
	Use:   "preview <name> <table>",
	Short: "Show the first rows of a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		res, err := c.DataSourceService().Preview(cmd.Context(), args[0], args[1], previewLimit)
		if err != nil {
			return err
		}
		return ui.PrintResult(res.Columns, res.Rows, 0, false)
	},
}

func init() {
	datasourceTablesCmd.Flags().BoolVar(&showHidden, "hidden", false, "Include hidden tables")
	datasourceOptionsCmd.Flags().StringVarP(&optionsSearch, "search", "s", "", "Only values containing this text")
	datasourceOptionsCmd.Flags().IntVarP(&optionsLimit, "limit", "n", 20, "Maximum number of values")
	datasourcePreviewCmd.Flags().IntVarP(&previewLimit, "limit", "n", 50, "Number of rows")

	datasourceCmd.AddCommand(datasourceListCmd)
	datasourceCmd.AddCommand(datasourceAddCmd)
	datasourceCmd.AddCommand(datasourceTestCmd)
	datasourceCmd.AddCommand(datasourceSyncCmd)
	datasourceCmd.AddCommand(datasourceTablesCmd)
	datasourceCmd.AddCommand(datasourceColumnsCmd)
	datasourceCmd.AddCommand(datasourceOptionsCmd)
	datasourceCmd.AddCommand(datasourcePreviewCmd)
	rootCmd.AddCommand(datasourceCmd)
}

func runDataSourceList(cmd *cobra.Command, args []string) error {
	conf := settings.Config()
	rows := make([][]string, 0, len(conf.DataSources)+1)
	for _, ds := range conf.DataSources {
		rows = append(rows, []string{ds.Name, string(ds.Type), location(ds)})
	}
	rows = append(rows, []string{config.QueryStoreName, string(database.TypeQueryStore), conf.QueryStore.Path})
	return ui.PrintTable([]string{"Name", "Type", "Location"}, rows)
}

func location(ds database.Config) string {
	switch {
	case ds.DSN != "":
		return "dsn"
	case ds.Path != "":
		return ds.Path
	case ds.Host != "":
		return fmt.Sprintf("%s:%d/%s", ds.Host, ds.Port, ds.Database)
	default:
		return "in-memory"
	}
}

var defaultPorts = map[database.Type]int{
	database.TypePostgres: 5432,
	database.TypeMySQL:    3306,
	database.TypeMariaDB:  3306,
}

func runDataSourceAdd(cmd *cobra.Command, args []string) error {
	ds := database.Config{}

	if err := survey.AskOne(&survey.Input{Message: "Name:"}, &ds.Name, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	if ds.Name == config.QueryStoreName {
		return fmt.Errorf("%s is reserved", config.QueryStoreName)
	}

	var typ string
	if err := survey.AskOne(&survey.Select{
		Message: "Type:",
		Options: []string{"postgres", "mysql", "mariadb", "sqlite", "duckdb"},
		Default: "postgres",
	}, &typ); err != nil {
		return err
	}
	ds.Type = database.Type(typ)

	if ds.Type == database.TypeSQLite || ds.Type == database.TypeDuckDB {
		if err := survey.AskOne(&survey.Input{Message: "Database file:"}, &ds.Path, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		return saveDataSource(ds)
	}

	var port string
	qs := []*survey.Question{
		{Name: "host", Prompt: &survey.Input{Message: "Host:", Default: "localhost"}, Validate: survey.Required},
		{Name: "port", Prompt: &survey.Input{Message: "Port:", Default: strconv.Itoa(defaultPorts[ds.Type])}, Validate: validPort},
		{Name: "database", Prompt: &survey.Input{Message: "Database:"}, Validate: survey.Required},
		{Name: "username", Prompt: &survey.Input{Message: "Username:"}},
	}
	answers := struct {
		Host     string
		Port     string
		Database string
		Username string
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		return err
	}
	ds.Host, port, ds.Database, ds.Username = answers.Host, answers.Port, answers.Database, answers.Username
	ds.Port, _ = strconv.Atoi(port)

	var password string
	if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password); err != nil {
		return err
	}
	if password != "" {
		useKeyring := true
		if err := survey.AskOne(&survey.Confirm{
			Message: "Store the password in the system keyring?",
			Default: true,
		}, &useKeyring); err != nil {
			return err
		}
		if useKeyring {
			if err := config.StorePassword(ds.Name, password); err != nil {
				return err
			}
			ds.PasswordFromKeyring = true
		} else {
			ds.Password = password
		}
	}
	return saveDataSource(ds)
}

func saveDataSource(ds database.Config) error {
	if err := settings.AddDataSource(ds); err != nil {
		return err
	}
	ui.PrintSuccess("Added %s to %s", ds.Name, settings.FileUsed())
	ui.PrintInfo("Run 'insights datasource sync %s' to load its tables", ds.Name)
	return nil
}

func validPort(ans interface{}) error {
	s, _ := ans.(string)
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("%q is not a valid port", s)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
