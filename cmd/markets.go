package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "List markets on a running node",
	Long:  `Fetches and displays the market catalog of a running node for debugging purposes.`,
	RunE:  runMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(marketsCmd)
	marketsCmd.Flags().BoolP("verbose", "v", false, "Show detailed market information")
}

func runMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := newNodeClient()
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	var markets []struct {
		ID                    string    `json:"id"`
		Symbol                string    `json:"symbol"`
		FeedID                string    `json:"feed_id"`
		CreationTime          time.Time `json:"creation_time"`
		Paused                bool      `json:"paused"`
		FeeRateBps            uint64    `json:"fee_rate_bps"`
		MinBet                uint64    `json:"min_bet"`
		BettingPeriodSeconds  int64     `json:"betting_period_seconds"`
		SettlingPeriodSeconds int64     `json:"settling_period_seconds"`
		Creator               string    `json:"creator"`
		CurrentRound          uint64    `json:"current_round"`
	}

	err = client.do(ctx, "GET", "/api/markets", nil, &markets)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}

	if len(markets) == 0 {
		fmt.Println("No markets found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tSYMBOL\tROUND\tFEE(BP)\tSTATUS\n")
	fmt.Fprintf(w, "--\t------\t-----\t-------\t------\n")

	for _, mk := range markets {
		status := "active"
		if mk.Paused {
			status = "paused"
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", mk.ID, mk.Symbol, mk.CurrentRound, mk.FeeRateBps, status)

		if verbose {
			fmt.Fprintf(w, "\tFeed: %s\n", mk.FeedID)
			fmt.Fprintf(w, "\tCreator: %s, Created: %s\n", mk.Creator, mk.CreationTime.Format(time.RFC3339))
			fmt.Fprintf(w, "\tBetting: %ds, Settling: %ds, Min bet: %d\n",
				mk.BettingPeriodSeconds, mk.SettlingPeriodSeconds, mk.MinBet)
			fmt.Fprintf(w, "\n")
		}
	}

	w.Flush()

	return nil
}
