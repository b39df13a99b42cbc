// Package cli implements the reward engine's command-line interface using
// Cobra, with a single rootCmd and one file per subcommand.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rewardengine",
	Short: "rewardengine — the Finova $FIN reward engine core",
	Long: `rewardengine computes, rate-limits, and issues $FIN reward credits
from verified user events across mining, XP, referral, and staking.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
