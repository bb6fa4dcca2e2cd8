package auctionhouse

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ExpertVagabond/grape-art/internal/accounts"
	"github.com/ExpertVagabond/grape-art/internal/config"
	"github.com/ExpertVagabond/grape-art/internal/core/metadata"
	"github.com/ExpertVagabond/grape-art/internal/price"
)

func testMarketplace(t *testing.T, treasuryMint string, daoVerified ...string) *config.Marketplace {
	t.Helper()
	cfg := &config.Marketplace{
		Programs: config.Programs{
			AuctionHouse:  config.DefaultAuctionHouseProgram,
			TokenMetadata: config.DefaultTokenMetadataProgram,
		},
		AuctionHouse: config.AuctionHouseConfig{
			Address:      config.DefaultAuctionHouseAddress,
			TreasuryMint: treasuryMint,
		},
		DAO: config.DAORegistry{Verified: daoVerified},
	}
	require.NoError(t, config.ValidateConfig(cfg))
	return cfg
}

func testAssembler(t *testing.T, cfg *config.Marketplace, reader accounts.Reader, policy StagePolicy) *Assembler {
	t.Helper()
	return NewAssembler(cfg, reader, policy, zerolog.Nop())
}

// seedToken places a holder and verified-creator metadata for mint into
// the static reader, returning the creator wallet.
func seedToken(t *testing.T, e *Engine, reader *accounts.Static, mint, holder solana.PublicKey) solana.PublicKey {
	t.Helper()
	creator := solana.NewWallet().PublicKey()
	creators := []metadata.Creator{{Address: creator, Verified: true, Share: 100}}
	metaAddr, err := e.Metadata(mint)
	require.NoError(t, err)
	reader.Metadatas[metaAddr.Address] = &metadata.Metadata{
		Key:  metadata.KeyMetadataV1,
		Mint: mint,
		Data: metadata.Data{SellerFeeBasisPoints: 500, Creators: &creators},
	}
	reader.Holders[mint] = holder
	return creator
}

func TestListInstructionOrder(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	reader := accounts.NewStatic()
	seller := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	t.Run("full", func(t *testing.T) {
		a := testAssembler(t, cfg, reader, FullPolicy)
		set, err := a.List(context.Background(), ListParams{Seller: seller, TokenMint: mint, Price: 1_500_000_000, TokenSize: 1})
		require.NoError(t, err)
		require.Equal(t, []string{ixSell, ixPrintListingReceipt, kindMemo}, set.Kinds())
		require.Len(t, set.Signers, 1) // receipt bookkeeper

		state, ok := MemoStateOf(set.Instructions[len(set.Instructions)-1])
		require.True(t, ok)
		require.Equal(t, MemoListing, state)
	})

	t.Run("legacy skips receipts", func(t *testing.T) {
		a := testAssembler(t, cfg, reader, LegacyPolicy)
		set, err := a.List(context.Background(), ListParams{Seller: seller, TokenMint: mint, Price: 1_500_000_000, TokenSize: 1})
		require.NoError(t, err)
		require.Equal(t, []string{ixSell, kindMemo}, set.Kinds())
		require.Empty(t, set.Signers)
	})
}

func TestListEncodesMantissaPrice(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	a := testAssembler(t, cfg, accounts.NewStatic(), FullPolicy)

	lamports, err := price.Mantissa(decimal.RequireFromString("1.50"), 9)
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000_000), lamports)

	set, err := a.List(context.Background(), ListParams{
		Seller:    solana.NewWallet().PublicKey(),
		TokenMint: solana.NewWallet().PublicKey(),
		Price:     lamports,
		TokenSize: 1,
	})
	require.NoError(t, err)

	// sell data: discriminator, three bumps, then price and size u64 LE.
	data, err := set.Instructions[0].Data()
	require.NoError(t, err)
	require.Len(t, data, 8+3+8+8)
	require.Equal(t, lamports, binary.LittleEndian.Uint64(data[11:19]))
	require.Equal(t, uint64(1), binary.LittleEndian.Uint64(data[19:27]))
}

func TestOfferInstructionOrderNativeRail(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	buyer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	seedToken(t, a.derive, reader, mint, solana.NewWallet().PublicKey())

	set, err := a.Offer(context.Background(), OfferParams{Buyer: buyer, TokenMint: mint, Price: 100, TokenSize: 1})
	require.NoError(t, err)
	require.Equal(t, []string{ixDeposit, ixPublicBuy, ixPrintBidReceipt, kindMemo}, set.Kinds())
	require.Len(t, set.Signers, 1) // bid receipt bookkeeper only

	state, ok := MemoStateOf(set.Instructions[len(set.Instructions)-1])
	require.True(t, ok)
	require.Equal(t, MemoOffer, state)
}

func TestOfferSPLRailWrapsFundingInApproveRevoke(t *testing.T) {
	splMint := solana.NewWallet().PublicKey()
	cfg := testMarketplace(t, splMint.String())
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	buyer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	seedToken(t, a.derive, reader, mint, solana.NewWallet().PublicKey())

	// Buyer has no payment token account yet, so the flow creates it.
	set, err := a.Offer(context.Background(), OfferParams{Buyer: buyer, TokenMint: mint, Price: 100, TokenSize: 1})
	require.NoError(t, err)
	require.Equal(t, []string{
		kindCreateATA, kindApprove, ixDeposit, ixPublicBuy, kindRevoke,
		ixPrintBidReceipt, kindMemo,
	}, set.Kinds())
	require.Len(t, set.Signers, 2) // ephemeral delegate + receipt bookkeeper

	// With the payment account present the create stage drops out.
	ata, _, err := solana.FindAssociatedTokenAddress(buyer, splMint)
	require.NoError(t, err)
	reader.ExtraAccounts[ata] = true
	set, err = a.Offer(context.Background(), OfferParams{Buyer: buyer, TokenMint: mint, Price: 100, TokenSize: 1})
	require.NoError(t, err)
	require.Equal(t, []string{
		kindApprove, ixDeposit, ixPublicBuy, kindRevoke, ixPrintBidReceipt, kindMemo,
	}, set.Kinds())
}

func TestBuyInstructionOrder(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	buyer := solana.NewWallet().PublicKey()
	seller := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	sellerATA, err := a.derive.AssociatedTokenAccount(seller, mint)
	require.NoError(t, err)
	creator := seedToken(t, a.derive, reader, mint, sellerATA.Address)

	set, err := a.Buy(context.Background(), BuyParams{
		Buyer: buyer, Seller: seller, TokenMint: mint, Price: 10_000, TokenSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		ixPublicBuy, ixPrintBidReceipt, ixExecuteSale, ixPrintPurchaseReceipt, kindMemo,
	}, set.Kinds())
	require.Len(t, set.Signers, 2) // bid + purchase bookkeepers

	state, ok := MemoStateOf(set.Instructions[len(set.Instructions)-1])
	require.True(t, ok)
	require.Equal(t, MemoExecute, state)

	// The verified creator rides execute_sale as a trailing writable
	// account.
	sale := set.Instructions[2]
	saleAccounts := sale.Accounts()
	last := saleAccounts[len(saleAccounts)-1]
	require.Equal(t, creator, last.PublicKey)
	require.True(t, last.IsWritable)
	require.False(t, last.IsSigner)
}

func TestAcceptOfferCancelsStaleListing(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	buyer := solana.NewWallet().PublicKey()
	seller := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	sellerATA, err := a.derive.AssociatedTokenAccount(seller, mint)
	require.NoError(t, err)
	seedToken(t, a.derive, reader, mint, sellerATA.Address)

	listedAt := uint64(20_000)
	set, err := a.AcceptOffer(context.Background(), AcceptOfferParams{
		Seller: seller, Buyer: buyer, TokenMint: mint,
		Price: 10_000, TokenSize: 1, ListedAtPrice: &listedAt,
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		ixCancel, ixCancelListingReceipt,
		ixSell, ixPrintListingReceipt,
		ixExecuteSale, ixPrintPurchaseReceipt, kindMemo,
	}, set.Kinds())

	state, ok := MemoStateOf(set.Instructions[len(set.Instructions)-1])
	require.True(t, ok)
	require.Equal(t, MemoAccept, state)

	// A listing already at the offer price needs no cancel.
	atPrice := uint64(10_000)
	set, err = a.AcceptOffer(context.Background(), AcceptOfferParams{
		Seller: seller, Buyer: buyer, TokenMint: mint,
		Price: 10_000, TokenSize: 1, ListedAtPrice: &atPrice,
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		ixSell, ixPrintListingReceipt, ixExecuteSale, ixPrintPurchaseReceipt, kindMemo,
	}, set.Kinds())
}

func TestCancelListingInstructionOrder(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	a := testAssembler(t, cfg, accounts.NewStatic(), FullPolicy)
	seller := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	set, err := a.CancelListing(context.Background(), CancelListingParams{
		Seller: seller, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{ixCancel, ixCancelListingReceipt, kindMemo}, set.Kinds())

	state, ok := MemoStateOf(set.Instructions[len(set.Instructions)-1])
	require.True(t, ok)
	require.Equal(t, MemoCancel, state)

	legacy := testAssembler(t, cfg, accounts.NewStatic(), LegacyPolicy)
	set, err = legacy.CancelListing(context.Background(), CancelListingParams{
		Seller: seller, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{ixCancel, kindMemo}, set.Kinds())
}

func TestCancelListingReceiptLeavesTradeStateAlone(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	a := testAssembler(t, cfg, accounts.NewStatic(), FullPolicy)
	seller := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	set, err := a.CancelListingReceipt(context.Background(), CancelListingParams{
		Seller: seller, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{ixCancelListingReceipt, kindMemo}, set.Kinds())

	state, ok := MemoStateOf(set.Instructions[1])
	require.True(t, ok)
	require.Equal(t, MemoCancel, state)
}

func TestCancelOfferWithdrawsCappedEscrow(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	buyer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	seedToken(t, a.derive, reader, mint, solana.NewWallet().PublicKey())

	// Escrow holds less than the bid price; the withdrawal caps to it.
	escrow, err := a.derive.BuyerEscrow(cfg.AuctionHouse.AddressKey(), buyer)
	require.NoError(t, err)
	reader.Lamports[escrow.Address] = 60

	set, err := a.CancelOffer(context.Background(), CancelOfferParams{
		Buyer: buyer, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{ixCancel, ixCancelBidReceipt, ixWithdraw, kindMemo}, set.Kinds())

	// withdraw data: discriminator, escrow bump, amount u64 LE.
	data, err := set.Instructions[2].Data()
	require.NoError(t, err)
	require.Equal(t, uint64(60), binary.LittleEndian.Uint64(data[9:17]))
}

func TestWithdrawCapsAndExactMode(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	wallet := solana.NewWallet().PublicKey()

	escrow, err := a.derive.BuyerEscrow(cfg.AuctionHouse.AddressKey(), wallet)
	require.NoError(t, err)
	reader.Lamports[escrow.Address] = 40

	set, err := a.Withdraw(context.Background(), WithdrawParams{Wallet: wallet, Amount: 100})
	require.NoError(t, err)
	require.Equal(t, []string{ixWithdraw, kindMemo}, set.Kinds())
	data, err := set.Instructions[0].Data()
	require.NoError(t, err)
	require.Equal(t, uint64(40), binary.LittleEndian.Uint64(data[9:17]))

	state, ok := MemoStateOf(set.Instructions[1])
	require.True(t, ok)
	require.Equal(t, MemoWithdraw, state)

	_, err = a.Withdraw(context.Background(), WithdrawParams{Wallet: wallet, Amount: 100, Exact: true})
	require.ErrorIs(t, err, ErrInsufficientEscrowBalance)
}

func TestWithdrawSPLRailCreatesMissingAccountAndRevokes(t *testing.T) {
	splMint := solana.NewWallet().PublicKey()
	cfg := testMarketplace(t, splMint.String())
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	wallet := solana.NewWallet().PublicKey()

	escrow, err := a.derive.BuyerEscrow(cfg.AuctionHouse.AddressKey(), wallet)
	require.NoError(t, err)
	reader.TokenAmounts[escrow.Address] = 40

	// No destination token account yet: create it, withdraw capped to
	// the escrow's token balance, then revoke.
	set, err := a.Withdraw(context.Background(), WithdrawParams{Wallet: wallet, Amount: 100})
	require.NoError(t, err)
	require.Equal(t, []string{kindCreateATA, ixWithdraw, kindRevoke, kindMemo}, set.Kinds())
	data, err := set.Instructions[1].Data()
	require.NoError(t, err)
	require.Equal(t, uint64(40), binary.LittleEndian.Uint64(data[9:17]))

	_, err = a.Withdraw(context.Background(), WithdrawParams{Wallet: wallet, Amount: 100, Exact: true})
	require.ErrorIs(t, err, ErrInsufficientEscrowBalance)

	// With the account present the create step drops out.
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, splMint)
	require.NoError(t, err)
	reader.ExtraAccounts[ata] = true
	set, err = a.Withdraw(context.Background(), WithdrawParams{Wallet: wallet, Amount: 10})
	require.NoError(t, err)
	require.Equal(t, []string{ixWithdraw, kindRevoke, kindMemo}, set.Kinds())
}

func TestCancelOfferSPLRailInstructionOrder(t *testing.T) {
	splMint := solana.NewWallet().PublicKey()
	cfg := testMarketplace(t, splMint.String())
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	buyer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	seedToken(t, a.derive, reader, mint, solana.NewWallet().PublicKey())

	escrow, err := a.derive.BuyerEscrow(cfg.AuctionHouse.AddressKey(), buyer)
	require.NoError(t, err)
	reader.TokenAmounts[escrow.Address] = 70

	set, err := a.CancelOffer(context.Background(), CancelOfferParams{
		Buyer: buyer, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		ixCancel, ixCancelBidReceipt, kindCreateATA, ixWithdraw, kindRevoke, kindMemo,
	}, set.Kinds())

	data, err := set.Instructions[3].Data()
	require.NoError(t, err)
	require.Equal(t, uint64(70), binary.LittleEndian.Uint64(data[9:17]))
}

func TestDepositInstructionOrder(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	a := testAssembler(t, cfg, accounts.NewStatic(), FullPolicy)
	wallet := solana.NewWallet().PublicKey()

	set, err := a.Deposit(context.Background(), DepositParams{Wallet: wallet, Amount: 500})
	require.NoError(t, err)
	require.Equal(t, []string{ixDeposit, kindMemo}, set.Kinds())

	state, ok := MemoStateOf(set.Instructions[1])
	require.True(t, ok)
	require.Equal(t, MemoDeposit, state)
}

func TestVoteFlowsRequireVerifiedDelegate(t *testing.T) {
	community := solana.NewWallet().PublicKey()
	cfg := testMarketplace(t, config.WrappedSOLMint, community.String())
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	mint := solana.NewWallet().PublicKey()
	seedToken(t, a.derive, reader, mint, solana.NewWallet().PublicKey())

	set, err := a.VoteList(context.Background(), community, ListParams{
		Seller: community, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, []string{ixSell, ixPrintListingReceipt, kindMemo}, set.Kinds())

	imposter := solana.NewWallet().PublicKey()
	_, err = a.VoteList(context.Background(), imposter, ListParams{
		Seller: imposter, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.ErrorIs(t, err, ErrUnverifiedDelegate)

	_, err = a.VoteOffer(context.Background(), imposter, OfferParams{
		Buyer: imposter, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.ErrorIs(t, err, ErrUnverifiedDelegate)
}

func TestVoteFlowsSubstituteCollectiveAsAuthority(t *testing.T) {
	community := solana.NewWallet().PublicKey()
	cfg := testMarketplace(t, config.WrappedSOLMint, community.String())
	reader := accounts.NewStatic()
	a := testAssembler(t, cfg, reader, FullPolicy)
	mint := solana.NewWallet().PublicKey()
	seedToken(t, a.derive, reader, mint, solana.NewWallet().PublicKey())
	caller := solana.NewWallet().PublicKey()

	// Whatever wallet the params name, the verified collective is the
	// effective seller: the sell instruction signs as it and the trade
	// state derives from it.
	set, err := a.VoteList(context.Background(), community, ListParams{
		Seller: caller, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	sellAccounts := set.Instructions[0].Accounts()
	require.Equal(t, community, sellAccounts[0].PublicKey)
	require.True(t, sellAccounts[0].IsSigner)

	direct, err := a.List(context.Background(), ListParams{
		Seller: community, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	require.True(t, sameData(set.Instructions[0], direct.Instructions[0]))
	require.Equal(t, direct.Instructions[0].Accounts()[6].PublicKey,
		sellAccounts[6].PublicKey) // trade state keyed off the collective

	// Same substitution on the buy side.
	offer, err := a.VoteOffer(context.Background(), community, OfferParams{
		Buyer: caller, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	depositAccounts := offer.Instructions[0].Accounts()
	require.Equal(t, community, depositAccounts[0].PublicKey)
	require.True(t, depositAccounts[0].IsSigner)

	accept, err := a.VoteAcceptOffer(context.Background(), community, AcceptOfferParams{
		Seller: caller, Buyer: caller, TokenMint: mint, Price: 100, TokenSize: 1,
	})
	require.NoError(t, err)
	require.Equal(t, community, accept.Instructions[0].Accounts()[0].PublicKey)
}

func TestAssemblyIsDeterministicModuloSigners(t *testing.T) {
	cfg := testMarketplace(t, config.WrappedSOLMint)
	a := testAssembler(t, cfg, accounts.NewStatic(), FullPolicy)
	p := ListParams{
		Seller:    solana.NewWallet().PublicKey(),
		TokenMint: solana.NewWallet().PublicKey(),
		Price:     777,
		TokenSize: 1,
	}

	first, err := a.List(context.Background(), p)
	require.NoError(t, err)
	second, err := a.List(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, first.Kinds(), second.Kinds())

	// Everything but the ephemeral bookkeeper account is stable.
	require.True(t, sameData(first.Instructions[0], second.Instructions[0]))
	require.True(t, sameData(first.Instructions[1], second.Instructions[1]))
}
