// Package commands implements the insights command line.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/insights-go/internal/config"
	"github.com/satishbabariya/insights-go/internal/debug"
	"github.com/satishbabariya/insights-go/internal/utils/container"
)

var (
	configPath  string
	debugMode   bool
	metricsFile string

	settings *config.Manager
	app      *container.Container
)

var rootCmd = &cobra.Command{
	Use:   "insights",
	Short: "Build and run analytical queries across databases",
	Long: `insights compiles structured queries into SQL for PostgreSQL, MySQL,
MariaDB, SQLite and DuckDB, runs them read-only with a row ceiling, and keeps
an execution log.

Configuration is read from .insights-go.yaml in the working directory, $HOME
or $HOME/.config/insights-go, and from INSIGHTS_* environment variables.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		err := app.Close(context.Background())
		app = nil
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
}

// Execute runs the command line. It cancels on SIGINT and SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, args []string) error {
	debug.Init(debugMode)

	var err error
	settings, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if metricsFile != "" {
		if err := settings.Override("telemetry.metrics_file", metricsFile); err != nil {
			return err
		}
	}
	if !debugMode {
		logging := settings.Config().Logging
		if err := debug.Configure(logging.Level, logging.Format, os.Stderr); err != nil {
			return err
		}
	}
	return nil
}

// openContainer opens the application container on first use.
func openContainer(cmd *cobra.Command) (*container.Container, error) {
	if app != nil {
		return app, nil
	}
	c, err := container.NewContainer(cmd.Context(), settings)
	if err != nil {
		return nil, err
	}
	app = c
	return app, nil
}
