package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/insights-go/internal/cli/ui"
	"github.com/satishbabariya/insights-go/internal/cli/version"
)

var versionRequire string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// Skips configuration loading.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionRequire != "" {
			ok, err := version.AtLeast(versionRequire)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("insights %s is older than the required %s", info.Version, versionRequire)
			}
		}
		if err := ui.PrintMarkdown(info.Markdown()); err != nil {
			fmt.Println(info.String())
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionRequire, "require", "", "Fail unless the version is at least this one")
	rootCmd.AddCommand(versionCmd)
}
