package auctionhouse

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/ExpertVagabond/grape-art/internal/config"
)

// Seed prefixes fixed by the on-chain programs.
const (
	auctionHousePrefix = "auction_house"
	feePayerSeed       = "fee_payer"
	treasurySeed       = "treasury"
	signerSeed         = "signer"
	metadataPrefix     = "metadata"
	editionSeed        = "edition"

	listingReceiptPrefix  = "listing_receipt"
	bidReceiptPrefix      = "bid_receipt"
	purchaseReceiptPrefix = "purchase_receipt"

	// editionMarkerBitSize is how many editions one edition-mark account
	// covers; the marker seed is the edition number divided by it.
	editionMarkerBitSize = 248
)

// Derived is a program-derived address together with the bump that made
// it fall off the ed25519 curve.
type Derived struct {
	Address solana.PublicKey
	Bump    uint8
}

// DerivedAccountSet maps a logical role to its derived account. Sets are
// computed fresh per assembly; trade-state addresses are keyed by price
// and token-account state, so nothing here is cacheable across calls.
type DerivedAccountSet map[string]Derived

// Engine derives every program-owned account the assembly layer touches.
// Derivation is pure arithmetic over the configured program ids and the
// supplied seeds; identical inputs always produce identical output.
type Engine struct {
	programs config.Programs
}

// NewEngine builds a derivation engine over the configured program ids.
func NewEngine(programs config.Programs) *Engine {
	return &Engine{programs: programs}
}

// derive runs the bounded bump search for seeds under program. The search
// space is 256 bumps; exhausting it without hitting an off-curve point is
// the ErrDerivationExhausted condition.
func derive(role string, seeds [][]byte, program solana.PublicKey) (Derived, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return Derived{}, fmt.Errorf("%s: %w", role, ErrDerivationExhausted)
	}
	return Derived{Address: addr, Bump: bump}, nil
}

// AuctionHouse derives an auction-house instance address from its
// creator and treasury mint.
func (e *Engine) AuctionHouse(creator, treasuryMint solana.PublicKey) (Derived, error) {
	return derive("auction_house", [][]byte{
		[]byte(auctionHousePrefix),
		creator.Bytes(),
		treasuryMint.Bytes(),
	}, e.programs.AuctionHouseID())
}

// FeeAccount derives the fee-payer account of an auction house.
func (e *Engine) FeeAccount(auctionHouse solana.PublicKey) (Derived, error) {
	return derive("fee_account", [][]byte{
		[]byte(auctionHousePrefix),
		auctionHouse.Bytes(),
		[]byte(feePayerSeed),
	}, e.programs.AuctionHouseID())
}

// TreasuryAccount derives the treasury account of an auction house.
func (e *Engine) TreasuryAccount(auctionHouse solana.PublicKey) (Derived, error) {
	return derive("treasury_account", [][]byte{
		[]byte(auctionHousePrefix),
		auctionHouse.Bytes(),
		[]byte(treasurySeed),
	}, e.programs.AuctionHouseID())
}

// BuyerEscrow derives the escrow payment account holding a buyer's
// deposited funds under an auction house.
func (e *Engine) BuyerEscrow(auctionHouse, wallet solana.PublicKey) (Derived, error) {
	return derive("escrow", [][]byte{
		[]byte(auctionHousePrefix),
		auctionHouse.Bytes(),
		wallet.Bytes(),
	}, e.programs.AuctionHouseID())
}

// ProgramAsSigner derives the program-as-signer authority.
func (e *Engine) ProgramAsSigner() (Derived, error) {
	return derive("program_as_signer", [][]byte{
		[]byte(auctionHousePrefix),
		[]byte(signerSeed),
	}, e.programs.AuctionHouseID())
}

// TradeState derives the trade-state record for one (wallet, token
// account, price, size) tuple. Price is part of the seeds: relisting at a
// different price is a different trade state.
func (e *Engine) TradeState(auctionHouse, wallet, tokenAccount, treasuryMint, tokenMint solana.PublicKey, price, tokenSize uint64) (Derived, error) {
	return derive("trade_state", [][]byte{
		[]byte(auctionHousePrefix),
		wallet.Bytes(),
		auctionHouse.Bytes(),
		tokenAccount.Bytes(),
		treasuryMint.Bytes(),
		tokenMint.Bytes(),
		uint64LE(price),
		uint64LE(tokenSize),
	}, e.programs.AuctionHouseID())
}

// FreeTradeState is the zero-price trade state the program uses to move
// the token out of a seller's account during execute-sale.
func (e *Engine) FreeTradeState(auctionHouse, wallet, tokenAccount, treasuryMint, tokenMint solana.PublicKey, tokenSize uint64) (Derived, error) {
	return e.TradeState(auctionHouse, wallet, tokenAccount, treasuryMint, tokenMint, 0, tokenSize)
}

// ListingReceipt derives the listing receipt for a seller trade state.
func (e *Engine) ListingReceipt(sellerTradeState solana.PublicKey) (Derived, error) {
	return derive("listing_receipt", [][]byte{
		[]byte(listingReceiptPrefix),
		sellerTradeState.Bytes(),
	}, e.programs.AuctionHouseID())
}

// BidReceipt derives the bid receipt for a buyer trade state.
func (e *Engine) BidReceipt(buyerTradeState solana.PublicKey) (Derived, error) {
	return derive("bid_receipt", [][]byte{
		[]byte(bidReceiptPrefix),
		buyerTradeState.Bytes(),
	}, e.programs.AuctionHouseID())
}

// PurchaseReceipt derives the purchase receipt tying a listing to the bid
// that consumed it.
func (e *Engine) PurchaseReceipt(sellerTradeState, buyerTradeState solana.PublicKey) (Derived, error) {
	return derive("purchase_receipt", [][]byte{
		[]byte(purchaseReceiptPrefix),
		sellerTradeState.Bytes(),
		buyerTradeState.Bytes(),
	}, e.programs.AuctionHouseID())
}

// Metadata derives the token-metadata account of a mint.
func (e *Engine) Metadata(mint solana.PublicKey) (Derived, error) {
	return derive("metadata", [][]byte{
		[]byte(metadataPrefix),
		e.programs.TokenMetadataID().Bytes(),
		mint.Bytes(),
	}, e.programs.TokenMetadataID())
}

// MasterEdition derives the master-edition account of a mint.
func (e *Engine) MasterEdition(mint solana.PublicKey) (Derived, error) {
	return derive("master_edition", [][]byte{
		[]byte(metadataPrefix),
		e.programs.TokenMetadataID().Bytes(),
		mint.Bytes(),
		[]byte(editionSeed),
	}, e.programs.TokenMetadataID())
}

// EditionMark derives the edition-mark account covering edition number
// edition of a mint.
func (e *Engine) EditionMark(mint solana.PublicKey, edition uint64) (Derived, error) {
	marker := strconv.FormatUint(edition/editionMarkerBitSize, 10)
	return derive("edition_mark", [][]byte{
		[]byte(metadataPrefix),
		e.programs.TokenMetadataID().Bytes(),
		mint.Bytes(),
		[]byte(editionSeed),
		[]byte(marker),
	}, e.programs.TokenMetadataID())
}

// AssociatedTokenAccount derives a wallet's associated token account for
// a mint.
func (e *Engine) AssociatedTokenAccount(wallet, mint solana.PublicKey) (Derived, error) {
	addr, bump, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return Derived{}, fmt.Errorf("associated_token_account: %w", ErrDerivationExhausted)
	}
	return Derived{Address: addr, Bump: bump}, nil
}

func uint64LE(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}
