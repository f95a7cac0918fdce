package commands

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/insights-go/internal/cli/ui"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

var importOpts struct {
	table     string
	format    string
	sheet     string
	delimiter string
	ifExists  string
}

var importCmd = &cobra.Command{
	Use:   "import <data-source> <file>",
	Short: "Load a CSV or XLSX file into a table",
	Long: `Load a CSV or XLSX file into a table of a sqlite or duckdb data source.
Column types are inferred from the data. The table name defaults to the
file name.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringVarP(&importOpts.table, "table", "t", "", "Target table name")
	f.StringVar(&importOpts.format, "format", "", "File format: csv or xlsx (default from the extension)")
	f.StringVar(&importOpts.sheet, "sheet", "", "XLSX sheet (default the first one)")
	f.StringVar(&importOpts.delimiter, "delimiter", ",", "CSV field delimiter")
	f.StringVar(&importOpts.ifExists, "if-exists", "fail", "What to do when the table exists: fail, replace or append")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	c, err := openContainer(cmd)
	if err != nil {
		return err
	}

	spec := domain.ImportSpec{
		Table:    importOpts.table,
		Source:   args[1],
		Format:   domain.ImportFormat(importOpts.format),
		Sheet:    importOpts.sheet,
		IfExists: domain.IfExists(importOpts.ifExists),
	}
	if spec.Table == "" {
		spec.Table = tableNameFromPath(args[1])
	}
	if r, _ := utf8.DecodeRuneInString(importOpts.delimiter); r != utf8.RuneError {
		spec.Delimiter = r
	}

	spinner := ui.Spinner("Importing " + args[1] + "...")
	err = c.DataSourceService().Import(cmd.Context(), args[0], spec)
	ui.StopSpinner(spinner)
	if err != nil {
		return err
	}
	ui.PrintSuccess("Imported %s into %s.%s", args[1], args[0], spec.Table)
	return nil
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// tableNameFromPath turns "Sales Q1.csv" into "sales_q1".
func tableNameFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Trim(nonIdent.ReplaceAllString(strings.ToLower(base), "_"), "_")
}
