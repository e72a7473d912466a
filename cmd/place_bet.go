package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var placeBetCmd = &cobra.Command{
	Use:   "place-bet",
	Short: "Place a bet on a market's current round",
	Long: `Places an up or down bet on a round of a market through a running node.
The caller account is taken from RAVEN_ACCOUNT in the environment (or .env).

Repeat bets on the same side in the same round accumulate into one position;
betting the opposite side of an existing position is rejected.`,
	RunE: runPlaceBet,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(placeBetCmd)
	placeBetCmd.Flags().StringP("market", "m", "", "Market ID (required)")
	placeBetCmd.Flags().Uint64P("round", "r", 0, "Round index (required)")
	placeBetCmd.Flags().StringP("direction", "d", "", "Bet direction: up or down (required)")
	placeBetCmd.Flags().Uint64P("amount", "a", 0, "Bet amount in base units (required)")
	_ = placeBetCmd.MarkFlagRequired("market")
	_ = placeBetCmd.MarkFlagRequired("round")
	_ = placeBetCmd.MarkFlagRequired("direction")
	_ = placeBetCmd.MarkFlagRequired("amount")
}

func runPlaceBet(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := newNodeClient()
	if err != nil {
		return err
	}

	marketID, _ := cmd.Flags().GetString("market")
	round, _ := cmd.Flags().GetUint64("round")
	direction, _ := cmd.Flags().GetString("direction")
	amount, _ := cmd.Flags().GetUint64("amount")

	req := map[string]interface{}{
		"market_id":   marketID,
		"round_index": round,
		"direction":   direction,
		"amount":      amount,
	}

	var resp struct {
		BetID     string `json:"bet_id"`
		Direction string `json:"direction"`
		Amount    uint64 `json:"amount"`
	}

	err = client.do(ctx, "POST", "/api/bets", req, &resp)
	if err != nil {
		return fmt.Errorf("place bet: %w", err)
	}

	fmt.Printf("Bet accepted\n")
	fmt.Printf("  ID:        %s\n", resp.BetID)
	fmt.Printf("  Market:    %s round %d\n", marketID, round)
	fmt.Printf("  Position:  %s %d\n", resp.Direction, resp.Amount)

	return nil
}
