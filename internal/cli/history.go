package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/ExpertVagabond/grape-art/internal/core/auctionhouse"
	"github.com/ExpertVagabond/grape-art/internal/storage/activity"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <wallet>",
	Short: "Show a wallet's locally recorded marketplace activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid wallet: %w", err)
		}
		store, err := activity.Open(activityDB, newLogger())
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.History(context.Background(), wallet, historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no recorded activity")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %-9s mint=%s price=%d size=%d\n",
				time.Unix(0, rec.UnixNano).Format(time.RFC3339),
				auctionhouse.MemoState(rec.State),
				rec.TokenMint, rec.Price, rec.TokenSize)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum records to show, 0 for all")
	rootCmd.AddCommand(historyCmd)
}
