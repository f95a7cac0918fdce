package main

import (
	"os"

	"github.com/satishbabariya/insights-go/cmd/insights/commands"
	"github.com/satishbabariya/insights-go/internal/cli/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		ui.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
