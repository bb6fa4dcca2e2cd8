package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/ExpertVagabond/grape-art/internal/accounts"
	"github.com/ExpertVagabond/grape-art/internal/config"
	"github.com/ExpertVagabond/grape-art/internal/core/auctionhouse"
	"github.com/ExpertVagabond/grape-art/internal/price"
	"github.com/ExpertVagabond/grape-art/internal/storage/activity"
)

var (
	flagWallet    string
	flagSeller    string
	flagBuyer     string
	flagMint      string
	flagPrice     string
	flagListedAt  string
	flagSize      uint64
	flagDecimals  uint8
	flagExact     bool
	flagCommunity string
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble a marketplace transaction",
	Long: `Assemble builds the full instruction set for one marketplace action
and prints it. Nothing is signed or submitted; the output is the exact
sequence a wallet would sign.`,
}

func init() {
	assembleCmd.PersistentFlags().StringVar(&flagMint, "mint", "", "token mint address")
	assembleCmd.PersistentFlags().StringVar(&flagPrice, "price", "", "price in whole treasury units, e.g. 1.50")
	assembleCmd.PersistentFlags().Uint64Var(&flagSize, "size", 1, "token amount in base units")
	assembleCmd.PersistentFlags().Uint8Var(&flagDecimals, "decimals", 0, "treasury mint decimals (0 = read from the mint)")
	assembleCmd.PersistentFlags().StringVar(&flagCommunity, "community", "", "act through this verified collective wallet")

	listCmd.Flags().StringVar(&flagSeller, "seller", "", "seller wallet")
	offerCmd.Flags().StringVar(&flagBuyer, "buyer", "", "buyer wallet")
	buyCmd.Flags().StringVar(&flagBuyer, "buyer", "", "buyer wallet")
	buyCmd.Flags().StringVar(&flagSeller, "seller", "", "seller wallet")
	acceptCmd.Flags().StringVar(&flagSeller, "seller", "", "seller wallet")
	acceptCmd.Flags().StringVar(&flagBuyer, "buyer", "", "buyer wallet")
	acceptCmd.Flags().StringVar(&flagListedAt, "listed-at", "", "current listing price to cancel first")
	cancelListingCmd.Flags().StringVar(&flagSeller, "seller", "", "seller wallet")
	cancelReceiptCmd.Flags().StringVar(&flagSeller, "seller", "", "seller wallet")
	cancelOfferCmd.Flags().StringVar(&flagBuyer, "buyer", "", "buyer wallet")
	depositCmd.Flags().StringVar(&flagWallet, "wallet", "", "escrow owner wallet")
	withdrawCmd.Flags().StringVar(&flagWallet, "wallet", "", "escrow owner wallet")
	withdrawCmd.Flags().BoolVar(&flagExact, "exact", false, "fail instead of capping to the escrow balance")

	assembleCmd.AddCommand(listCmd, offerCmd, buyCmd, acceptCmd,
		cancelListingCmd, cancelReceiptCmd, cancelOfferCmd, depositCmd, withdrawCmd)
	rootCmd.AddCommand(assembleCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a token at a fixed price",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoListing, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			seller, mint, lamports, err := sellerMintPrice()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			p := auctionhouse.ListParams{Seller: seller, TokenMint: mint, Price: lamports, TokenSize: flagSize}
			if flagCommunity != "" {
				community, err := solana.PublicKeyFromBase58(flagCommunity)
				if err != nil {
					return nil, solana.PublicKey{}, fmt.Errorf("invalid community wallet: %w", err)
				}
				set, err := a.VoteList(ctx, community, p)
				return set, seller, err
			}
			set, err := a.List(ctx, p)
			return set, seller, err
		})
	},
}

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Place an escrow-backed offer on a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoOffer, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			buyer, mint, lamports, err := buyerMintPrice()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			p := auctionhouse.OfferParams{Buyer: buyer, TokenMint: mint, Price: lamports, TokenSize: flagSize}
			if flagCommunity != "" {
				community, err := solana.PublicKeyFromBase58(flagCommunity)
				if err != nil {
					return nil, solana.PublicKey{}, fmt.Errorf("invalid community wallet: %w", err)
				}
				set, err := a.VoteOffer(ctx, community, p)
				return set, buyer, err
			}
			set, err := a.Offer(ctx, p)
			return set, buyer, err
		})
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy an active listing outright",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoExecute, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			buyer, mint, lamports, err := buyerMintPrice()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			seller, err := solana.PublicKeyFromBase58(flagSeller)
			if err != nil {
				return nil, solana.PublicKey{}, fmt.Errorf("invalid seller wallet: %w", err)
			}
			set, err := a.Buy(ctx, auctionhouse.BuyParams{
				Buyer: buyer, Seller: seller, TokenMint: mint, Price: lamports, TokenSize: flagSize,
			})
			return set, buyer, err
		})
	},
}

var acceptCmd = &cobra.Command{
	Use:   "accept-offer",
	Short: "Accept a standing offer as the seller",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoAccept, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			seller, mint, lamports, err := sellerMintPrice()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			buyer, err := solana.PublicKeyFromBase58(flagBuyer)
			if err != nil {
				return nil, solana.PublicKey{}, fmt.Errorf("invalid buyer wallet: %w", err)
			}
			p := auctionhouse.AcceptOfferParams{
				Seller: seller, Buyer: buyer, TokenMint: mint, Price: lamports, TokenSize: flagSize,
			}
			if flagListedAt != "" {
				listedAt, err := price.Parse(flagListedAt, flagDecimals)
				if err != nil {
					return nil, solana.PublicKey{}, fmt.Errorf("invalid listed-at price: %w", err)
				}
				p.ListedAtPrice = &listedAt
			}
			if flagCommunity != "" {
				community, err := solana.PublicKeyFromBase58(flagCommunity)
				if err != nil {
					return nil, solana.PublicKey{}, fmt.Errorf("invalid community wallet: %w", err)
				}
				set, err := a.VoteAcceptOffer(ctx, community, p)
				return set, seller, err
			}
			set, err := a.AcceptOffer(ctx, p)
			return set, seller, err
		})
	},
}

var cancelListingCmd = &cobra.Command{
	Use:   "cancel-listing",
	Short: "Cancel an active listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoCancel, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			seller, mint, lamports, err := sellerMintPrice()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			set, err := a.CancelListing(ctx, auctionhouse.CancelListingParams{
				Seller: seller, TokenMint: mint, Price: lamports, TokenSize: flagSize,
			})
			return set, seller, err
		})
	},
}

var cancelReceiptCmd = &cobra.Command{
	Use:   "cancel-listing-receipt",
	Short: "Retire a listing receipt without touching the listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoCancel, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			seller, mint, lamports, err := sellerMintPrice()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			set, err := a.CancelListingReceipt(ctx, auctionhouse.CancelListingParams{
				Seller: seller, TokenMint: mint, Price: lamports, TokenSize: flagSize,
			})
			return set, seller, err
		})
	},
}

var cancelOfferCmd = &cobra.Command{
	Use:   "cancel-offer",
	Short: "Cancel an open offer and recover its escrow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoCancel, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			buyer, mint, lamports, err := buyerMintPrice()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			set, err := a.CancelOffer(ctx, auctionhouse.CancelOfferParams{
				Buyer: buyer, TokenMint: mint, Price: lamports, TokenSize: flagSize,
			})
			return set, buyer, err
		})
	},
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Fund the buyer escrow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoDeposit, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			wallet, amount, err := walletAmount()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			set, err := a.Deposit(ctx, auctionhouse.DepositParams{Wallet: wallet, Amount: amount})
			return set, wallet, err
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw funds from the buyer escrow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(auctionhouse.MemoWithdraw, func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error) {
			wallet, amount, err := walletAmount()
			if err != nil {
				return nil, solana.PublicKey{}, err
			}
			set, err := a.Withdraw(ctx, auctionhouse.WithdrawParams{Wallet: wallet, Amount: amount, Exact: flagExact})
			return set, wallet, err
		})
	},
}

type flowFunc func(ctx context.Context, a *auctionhouse.Assembler) (*auctionhouse.InstructionSet, solana.PublicKey, error)

// runFlow loads configuration, assembles one flow, prints the result and
// appends it to the local activity log.
func runFlow(state auctionhouse.MemoState, flow flowFunc) error {
	log := newLogger()
	cfg, err := loadMarketplace()
	if err != nil {
		return err
	}
	reader, err := newReader()
	if err != nil {
		return err
	}
	assembler := newAssembler(cfg, reader, log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := resolveDecimals(ctx, cfg, reader); err != nil {
		return err
	}
	set, wallet, err := flow(ctx, assembler)
	if err != nil {
		return err
	}
	printInstructionSet(set)

	mint := solana.PublicKey{}
	if flagMint != "" {
		mint, _ = solana.PublicKeyFromBase58(flagMint)
	}
	lamports := uint64(0)
	if flagPrice != "" {
		lamports, _ = price.Parse(flagPrice, flagDecimals)
	}
	if err := recordActivity(ctx, activity.Record{
		Wallet:    wallet,
		TokenMint: mint,
		State:     uint8(state),
		Price:     lamports,
		TokenSize: flagSize,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to record activity")
	}
	return nil
}

// resolveDecimals fills in --decimals when it was left to auto-detect:
// nine for the native mint, otherwise whatever the treasury mint account
// says.
func resolveDecimals(ctx context.Context, cfg *config.Marketplace, reader accounts.Reader) error {
	if flagDecimals != 0 {
		return nil
	}
	treasuryMint := cfg.AuctionHouse.TreasuryMintKey()
	if treasuryMint.Equals(solana.SolMint) {
		flagDecimals = 9
		return nil
	}
	decimals, err := reader.MintDecimals(ctx, treasuryMint)
	if err != nil {
		return fmt.Errorf("failed to read treasury mint decimals: %w", err)
	}
	flagDecimals = decimals
	return nil
}

func recordActivity(ctx context.Context, rec activity.Record) error {
	store, err := activity.Open(activityDB, newLogger())
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Append(ctx, rec)
}

func printInstructionSet(set *auctionhouse.InstructionSet) {
	fmt.Printf("instructions: %d, extra signers: %d\n", len(set.Instructions), len(set.Signers))
	for i, ix := range set.Instructions {
		data, err := ix.Data()
		if err != nil {
			fmt.Printf("  %2d %-24s <data error: %v>\n", i, auctionhouse.Kind(ix), err)
			continue
		}
		fmt.Printf("  %2d %-24s program=%s accounts=%d data=%s\n",
			i, auctionhouse.Kind(ix), ix.ProgramID(), len(ix.Accounts()),
			base64.StdEncoding.EncodeToString(data))
	}
}

func sellerMintPrice() (solana.PublicKey, solana.PublicKey, uint64, error) {
	seller, err := solana.PublicKeyFromBase58(flagSeller)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, 0, fmt.Errorf("invalid seller wallet: %w", err)
	}
	mint, lamports, err := mintPrice()
	return seller, mint, lamports, err
}

func buyerMintPrice() (solana.PublicKey, solana.PublicKey, uint64, error) {
	buyer, err := solana.PublicKeyFromBase58(flagBuyer)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, 0, fmt.Errorf("invalid buyer wallet: %w", err)
	}
	mint, lamports, err := mintPrice()
	return buyer, mint, lamports, err
}

func mintPrice() (solana.PublicKey, uint64, error) {
	mint, err := solana.PublicKeyFromBase58(flagMint)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("invalid mint: %w", err)
	}
	lamports, err := price.Parse(flagPrice, flagDecimals)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("invalid price: %w", err)
	}
	return mint, lamports, nil
}

func walletAmount() (solana.PublicKey, uint64, error) {
	wallet, err := solana.PublicKeyFromBase58(flagWallet)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("invalid wallet: %w", err)
	}
	amount, err := price.Parse(flagPrice, flagDecimals)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("invalid amount: %w", err)
	}
	return wallet, amount, nil
}
