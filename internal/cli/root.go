package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Layered threat-assessment engine",
	Long:  "Scores incoming actions across independent analytical layers, classifies the combined risk, derives an enforcement decision, and records the decision with its evidence in an append-only ledger.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
