package cli

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ExpertVagabond/grape-art/internal/accounts"
	"github.com/ExpertVagabond/grape-art/internal/config"
	"github.com/ExpertVagabond/grape-art/internal/core/auctionhouse"
)

var (
	// Global flags
	configFile  string
	rpcEndpoint string
	legacy      bool
	debug       bool
	activityDB  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grapeart",
	Short: "grape-art - Solana marketplace transaction assembler",
	Long: `grapeart assembles complete auction-house transactions for the grape
marketplace: listings, offers, purchases and escrow management. It derives
every program address locally, reads on-chain state over RPC, and prints
the assembled instruction set without submitting anything.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().StringVar(&rpcEndpoint, "rpc", rpc.MainNetBeta_RPC, "Solana RPC endpoint")
	rootCmd.PersistentFlags().BoolVar(&legacy, "legacy", false, "assemble without receipt bookkeeping")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().StringVar(&activityDB, "activity-db", defaultActivityPath(), "path to the local activity log")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func loadMarketplace() (*config.Marketplace, error) {
	if configFile != "" {
		return config.LoadConfig(configFile)
	}
	return config.LoadDefaultConfig()
}

func newReader() (accounts.Reader, error) {
	return accounts.NewRPCReader(rpcEndpoint)
}

func newAssembler(cfg *config.Marketplace, reader accounts.Reader, log zerolog.Logger) *auctionhouse.Assembler {
	policy := auctionhouse.FullPolicy
	if legacy {
		policy = auctionhouse.LegacyPolicy
	}
	return auctionhouse.NewAssembler(cfg, reader, policy, log)
}

func defaultActivityPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".grapeart/activity"
	}
	return home + "/.grapeart/activity"
}
