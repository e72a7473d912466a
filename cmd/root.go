package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "raven-engine",
	Short: "Escrow-backed binary-outcome wagering node",
	Long: `Raven engine runs escrow-backed up/down wagering markets over oracle
price feeds. Each market cycles through fixed betting and settling windows;
a permissionless crank locks the start and end prices and settles the round,
splitting the loser pool pro rata across winners after fees.

The node serves a JSON API plus a WebSocket event stream, and runs a built-in
keeper that cranks every market on a timer. The client subcommands talk to a
running node over HTTP.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
