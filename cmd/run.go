package cmd

import (
	"fmt"

	"github.com/ravenmarkets/raven-engine/internal/app"
	"github.com/ravenmarkets/raven-engine/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the wagering node",
	Long: `Starts the raven engine node, which will:
1. Serve the JSON API and WebSocket event stream
2. Fetch oracle prices from the configured Hermes endpoint
3. Crank every market's current round on a timer (the keeper)
4. Record accepted bets and settlements to the configured audit storage

Use --no-keeper to disable the built-in crank and settle rounds manually
via the process-round subcommand.`,
	RunE: runNode,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("no-keeper", false, "Disable the built-in settlement crank (for debugging)")
}

func runNode(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create logger
	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Get flags
	noKeeper, _ := cmd.Flags().GetBool("no-keeper")

	// Create app with options
	opts := &app.Options{
		DisableKeeper: noKeeper,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	// Run app
	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
