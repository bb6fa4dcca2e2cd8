package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ExpertVagabond/grape-art/internal/config"
)

var exampleConfigCmd = &cobra.Command{
	Use:   "example-config <path>",
	Short: "Write an example configuration file",
	Long: `Write a TOML configuration file populated with the mainnet defaults:
the auction-house and token-metadata program ids, the default instance,
and an empty verified-collective registry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveExampleConfig(args[0]); err != nil {
			return err
		}
		fmt.Printf("wrote example configuration to %s\n", args[0])
		return nil
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadMarketplace()
		if err != nil {
			return err
		}
		fmt.Printf("auction house program: %s\n", cfg.Programs.AuctionHouseID())
		fmt.Printf("token metadata program: %s\n", cfg.Programs.TokenMetadataID())
		fmt.Printf("instance: %s\n", cfg.AuctionHouse.AddressKey())
		fmt.Printf("authority: %s\n", cfg.AuctionHouse.AuthorityKey())
		fmt.Printf("treasury mint: %s\n", cfg.AuctionHouse.TreasuryMintKey())
		fmt.Printf("verified collectives: %d\n", len(cfg.DAO.VerifiedKeys()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exampleConfigCmd, showConfigCmd)
}
