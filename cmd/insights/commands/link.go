package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/insights-go/internal/cli/ui"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

var datasourceLinkCmd = &cobra.Command{
	Use:   "link <name> <table.column> <table.column>",
	Short: "Record that two tables can be joined on a pair of columns",
	Long: `Record a join link between two synced tables. Joins declared without a
condition follow the shortest chain of links. Foreign keys are linked
automatically by 'insights datasource sync'.`,
	Example: "  insights datasource link shop customers.id orders.customer_id",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pt, pk, err := splitColumnRef(args[1])
		if err != nil {
			return err
		}
		ft, fk, err := splitColumnRef(args[2])
		if err != nil {
			return err
		}
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		link := domain.TableLink{PrimaryTable: pt, PrimaryKey: pk, ForeignTable: ft, ForeignKey: fk}
		if err := c.DataSourceService().Link(cmd.Context(), args[0], link); err != nil {
			return err
		}
		ui.PrintSuccess("Linked %s to %s", args[1], args[2])
		return nil
	},
}

var datasourceLinksCmd = &cobra.Command{
	Use:   "links <name> [from to]",
	Short: "List table links, or the join path between two tables",
	Args: cobra.MatchAll(cobra.RangeArgs(1, 3), func(cmd *cobra.Command, args []string) error {
		if len(args) == 2 {
			return fmt.Errorf("a join path needs both a from and a to table")
		}
		return nil
	}),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openContainer(cmd)
		if err != nil {
			return err
		}
		var links []domain.TableLink
		if len(args) == 3 {
			links, err = c.DataSourceService().JoinPath(cmd.Context(), args[0], args[1], args[2])
		} else {
			links, err = c.DataSourceService().Links(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		if len(links) == 0 {
			ui.PrintInfo("No links recorded for %s.", args[0])
			return nil
		}
		rows := make([][]string, len(links))
		for i, l := range links {
			rows[i] = []string{l.PrimaryTable + "." + l.PrimaryKey, l.ForeignTable + "." + l.ForeignKey}
		}
		return ui.PrintTable([]string{"From", "To"}, rows)
	},
}

// splitColumnRef splits "table.column" at its last dot.
func splitColumnRef(ref string) (table, column string, err error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("expected table.column, got %q", ref)
	}
	return ref[:i], ref[i+1:], nil
}

func init() {
	datasourceCmd.AddCommand(datasourceLinkCmd)
	datasourceCmd.AddCommand(datasourceLinksCmd)
}
