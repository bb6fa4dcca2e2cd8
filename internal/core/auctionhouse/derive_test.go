package auctionhouse

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/ExpertVagabond/grape-art/internal/config"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := &config.Marketplace{
		Programs: config.Programs{
			AuctionHouse:  config.DefaultAuctionHouseProgram,
			TokenMetadata: config.DefaultTokenMetadataProgram,
		},
		AuctionHouse: config.AuctionHouseConfig{
			Address:      config.DefaultAuctionHouseAddress,
			TreasuryMint: config.WrappedSOLMint,
		},
	}
	require.NoError(t, config.ValidateConfig(cfg))
	return NewEngine(cfg.Programs)
}

func TestDerivationIsDeterministic(t *testing.T) {
	e := testEngine(t)
	house := solana.MustPublicKeyFromBase58(config.DefaultAuctionHouseAddress)
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	tokenAccount := solana.NewWallet().PublicKey()
	treasury := solana.MustPublicKeyFromBase58(config.WrappedSOLMint)

	tests := []struct {
		name   string
		derive func() (Derived, error)
	}{
		{"fee_account", func() (Derived, error) { return e.FeeAccount(house) }},
		{"treasury", func() (Derived, error) { return e.TreasuryAccount(house) }},
		{"buyer_escrow", func() (Derived, error) { return e.BuyerEscrow(house, wallet) }},
		{"program_as_signer", func() (Derived, error) { return e.ProgramAsSigner() }},
		{"trade_state", func() (Derived, error) {
			return e.TradeState(house, wallet, tokenAccount, treasury, mint, 1_500_000_000, 1)
		}},
		{"metadata", func() (Derived, error) { return e.Metadata(mint) }},
		{"master_edition", func() (Derived, error) { return e.MasterEdition(mint) }},
		{"listing_receipt", func() (Derived, error) { return e.ListingReceipt(tokenAccount) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			first, err := tc.derive()
			require.NoError(t, err)
			second, err := tc.derive()
			require.NoError(t, err)
			require.Equal(t, first.Address, second.Address)
			require.Equal(t, first.Bump, second.Bump)
			require.False(t, first.Address.IsZero())
		})
	}
}

func TestDerivedRolesAreDistinct(t *testing.T) {
	e := testEngine(t)
	house := solana.MustPublicKeyFromBase58(config.DefaultAuctionHouseAddress)
	wallet := solana.NewWallet().PublicKey()

	fee, err := e.FeeAccount(house)
	require.NoError(t, err)
	treasury, err := e.TreasuryAccount(house)
	require.NoError(t, err)
	escrow, err := e.BuyerEscrow(house, wallet)
	require.NoError(t, err)

	require.NotEqual(t, fee.Address, treasury.Address)
	require.NotEqual(t, fee.Address, escrow.Address)
	require.NotEqual(t, treasury.Address, escrow.Address)
}

func TestFreeTradeStateIsZeroPriceTradeState(t *testing.T) {
	e := testEngine(t)
	house := solana.MustPublicKeyFromBase58(config.DefaultAuctionHouseAddress)
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	tokenAccount := solana.NewWallet().PublicKey()
	treasury := solana.MustPublicKeyFromBase58(config.WrappedSOLMint)

	free, err := e.FreeTradeState(house, wallet, tokenAccount, treasury, mint, 1)
	require.NoError(t, err)
	zero, err := e.TradeState(house, wallet, tokenAccount, treasury, mint, 0, 1)
	require.NoError(t, err)
	require.Equal(t, zero, free)

	priced, err := e.TradeState(house, wallet, tokenAccount, treasury, mint, 1, 1)
	require.NoError(t, err)
	require.NotEqual(t, priced.Address, free.Address)
}

func TestTradeStatePriceChangesAddress(t *testing.T) {
	e := testEngine(t)
	house := solana.MustPublicKeyFromBase58(config.DefaultAuctionHouseAddress)
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	tokenAccount := solana.NewWallet().PublicKey()
	treasury := solana.MustPublicKeyFromBase58(config.WrappedSOLMint)

	a, err := e.TradeState(house, wallet, tokenAccount, treasury, mint, 100, 1)
	require.NoError(t, err)
	b, err := e.TradeState(house, wallet, tokenAccount, treasury, mint, 101, 1)
	require.NoError(t, err)
	require.NotEqual(t, a.Address, b.Address)
}

func TestEditionMarkSegments(t *testing.T) {
	e := testEngine(t)
	mint := solana.NewWallet().PublicKey()

	// Editions 0..247 share one marker account; 248 starts the next.
	first, err := e.EditionMark(mint, 0)
	require.NoError(t, err)
	lastOfSegment, err := e.EditionMark(mint, 247)
	require.NoError(t, err)
	nextSegment, err := e.EditionMark(mint, 248)
	require.NoError(t, err)

	require.Equal(t, first.Address, lastOfSegment.Address)
	require.NotEqual(t, first.Address, nextSegment.Address)
}

func TestReceiptDerivationsDiffer(t *testing.T) {
	e := testEngine(t)
	tradeState := solana.NewWallet().PublicKey()

	listing, err := e.ListingReceipt(tradeState)
	require.NoError(t, err)
	bid, err := e.BidReceipt(tradeState)
	require.NoError(t, err)
	require.NotEqual(t, listing.Address, bid.Address)

	purchase, err := e.PurchaseReceipt(tradeState, tradeState)
	require.NoError(t, err)
	require.NotEqual(t, listing.Address, purchase.Address)
	require.NotEqual(t, bid.Address, purchase.Address)
}
