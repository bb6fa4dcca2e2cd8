package auctionhouse

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction names the auction-house program registers. The wire form of
// each call is the 8-byte discriminator sha256("global:<name>")[:8]
// followed by the borsh-encoded arguments; the program matches on those
// bytes exactly.
const (
	ixSell                 = "sell"
	ixBuy                  = "buy"
	ixPublicBuy            = "public_buy"
	ixExecuteSale          = "execute_sale"
	ixDeposit              = "deposit"
	ixWithdraw             = "withdraw"
	ixCancel               = "cancel"
	ixPrintListingReceipt  = "print_listing_receipt"
	ixPrintBidReceipt      = "print_bid_receipt"
	ixPrintPurchaseReceipt = "print_purchase_receipt"
	ixCancelListingReceipt = "cancel_listing_receipt"
	ixCancelBidReceipt     = "cancel_bid_receipt"
)

// kindMemo names the activity memo appended by the tagger; the token
// program sub-steps reuse their SPL names.
const (
	kindMemo      = "memo"
	kindApprove   = "approve"
	kindRevoke    = "revoke"
	kindCreateATA = "create_associated_token_account"
	kindUnknown   = "unknown"
)

func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var discriminatorNames = func() map[[8]byte]string {
	names := []string{
		ixSell, ixBuy, ixPublicBuy, ixExecuteSale, ixDeposit, ixWithdraw,
		ixCancel, ixPrintListingReceipt, ixPrintBidReceipt,
		ixPrintPurchaseReceipt, ixCancelListingReceipt, ixCancelBidReceipt,
	}
	m := make(map[[8]byte]string, len(names))
	for _, n := range names {
		m[anchorDiscriminator(n)] = n
	}
	return m
}()

// Kind classifies an assembled instruction by its on-wire identity. Tests
// and the CLI use it to check the exact instruction ordering a flow
// produced.
func Kind(ix solana.Instruction) string {
	data, err := ix.Data()
	if err != nil {
		return kindUnknown
	}
	switch {
	case ix.ProgramID().Equals(memoProgram):
		return kindMemo
	case ix.ProgramID().Equals(solana.TokenProgramID):
		if len(data) == 0 {
			return kindUnknown
		}
		// SPL token instruction tags. Reference: spl-token instruction.rs.
		switch data[0] {
		case 4:
			return kindApprove
		case 5:
			return kindRevoke
		}
		return kindUnknown
	case ix.ProgramID().Equals(solana.SPLAssociatedTokenAccountProgramID):
		return kindCreateATA
	}
	if len(data) < 8 {
		return kindUnknown
	}
	var d [8]byte
	copy(d[:], data[:8])
	if name, ok := discriminatorNames[d]; ok {
		return name
	}
	return kindUnknown
}

// encodeArgs renders discriminator-plus-borsh-args instruction data.
func encodeArgs(name string, args interface{}) ([]byte, error) {
	d := anchorDiscriminator(name)
	if args == nil {
		return d[:], nil
	}
	payload, err := bin.MarshalBorsh(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s args: %w", name, err)
	}
	return append(d[:], payload...), nil
}

type sellArgs struct {
	TradeStateBump      uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

type buyArgs struct {
	TradeStateBump    uint8
	EscrowPaymentBump uint8
	BuyerPrice        uint64
	TokenSize         uint64
}

type executeSaleArgs struct {
	EscrowPaymentBump   uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

type escrowArgs struct {
	EscrowPaymentBump uint8
	Amount            uint64
}

type cancelArgs struct {
	BuyerPrice uint64
	TokenSize  uint64
}

type receiptArgs struct {
	ReceiptBump uint8
}

// sellAccounts is everything the sell instruction touches.
type sellAccounts struct {
	Wallet          solana.PublicKey
	TokenAccount    solana.PublicKey
	Metadata        solana.PublicKey
	Authority       solana.PublicKey
	AuctionHouse    solana.PublicKey
	FeeAccount      solana.PublicKey
	TradeState      solana.PublicKey
	FreeTradeState  solana.PublicKey
	ProgramAsSigner solana.PublicKey
}

func (a *Assembler) newSellInstruction(acc sellAccounts, args sellArgs) (solana.Instruction, error) {
	data, err := encodeArgs(ixSell, args)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(acc.Wallet, false, true),
		solana.NewAccountMeta(acc.TokenAccount, true, false),
		solana.NewAccountMeta(acc.Metadata, false, false),
		solana.NewAccountMeta(acc.Authority, false, false),
		solana.NewAccountMeta(acc.AuctionHouse, false, false),
		solana.NewAccountMeta(acc.FeeAccount, true, false),
		solana.NewAccountMeta(acc.TradeState, true, false),
		solana.NewAccountMeta(acc.FreeTradeState, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(acc.ProgramAsSigner, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

type publicBuyAccounts struct {
	Wallet            solana.PublicKey
	PaymentAccount    solana.PublicKey
	TransferAuthority solana.PublicKey
	TreasuryMint      solana.PublicKey
	TokenAccount      solana.PublicKey
	Metadata          solana.PublicKey
	EscrowPayment     solana.PublicKey
	Authority         solana.PublicKey
	AuctionHouse      solana.PublicKey
	FeeAccount        solana.PublicKey
	TradeState        solana.PublicKey
}

func (a *Assembler) newPublicBuyInstruction(acc publicBuyAccounts, args buyArgs) (solana.Instruction, error) {
	data, err := encodeArgs(ixPublicBuy, args)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(acc.Wallet, false, true),
		solana.NewAccountMeta(acc.PaymentAccount, true, false),
		solana.NewAccountMeta(acc.TransferAuthority, false, false),
		solana.NewAccountMeta(acc.TreasuryMint, false, false),
		solana.NewAccountMeta(acc.TokenAccount, false, false),
		solana.NewAccountMeta(acc.Metadata, false, false),
		solana.NewAccountMeta(acc.EscrowPayment, true, false),
		solana.NewAccountMeta(acc.Authority, false, false),
		solana.NewAccountMeta(acc.AuctionHouse, false, false),
		solana.NewAccountMeta(acc.FeeAccount, true, false),
		solana.NewAccountMeta(acc.TradeState, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

type executeSaleAccounts struct {
	Buyer             solana.PublicKey
	Seller            solana.PublicKey
	TokenAccount      solana.PublicKey
	TokenMint         solana.PublicKey
	Metadata          solana.PublicKey
	TreasuryMint      solana.PublicKey
	EscrowPayment     solana.PublicKey
	SellerPayment     solana.PublicKey
	BuyerTokenAccount solana.PublicKey
	Authority         solana.PublicKey
	AuctionHouse      solana.PublicKey
	FeeAccount        solana.PublicKey
	Treasury          solana.PublicKey
	BuyerTradeState   solana.PublicKey
	SellerTradeState  solana.PublicKey
	FreeTradeState    solana.PublicKey
	ProgramAsSigner   solana.PublicKey
	CreatorAccounts   solana.AccountMetaSlice
}

func (a *Assembler) newExecuteSaleInstruction(acc executeSaleAccounts, args executeSaleArgs) (solana.Instruction, error) {
	data, err := encodeArgs(ixExecuteSale, args)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(acc.Buyer, true, false),
		solana.NewAccountMeta(acc.Seller, true, false),
		solana.NewAccountMeta(acc.TokenAccount, true, false),
		solana.NewAccountMeta(acc.TokenMint, false, false),
		solana.NewAccountMeta(acc.Metadata, false, false),
		solana.NewAccountMeta(acc.TreasuryMint, false, false),
		solana.NewAccountMeta(acc.EscrowPayment, true, false),
		solana.NewAccountMeta(acc.SellerPayment, true, false),
		solana.NewAccountMeta(acc.BuyerTokenAccount, true, false),
		solana.NewAccountMeta(acc.Authority, false, false),
		solana.NewAccountMeta(acc.AuctionHouse, false, false),
		solana.NewAccountMeta(acc.FeeAccount, true, false),
		solana.NewAccountMeta(acc.Treasury, true, false),
		solana.NewAccountMeta(acc.BuyerTradeState, true, false),
		solana.NewAccountMeta(acc.SellerTradeState, true, false),
		solana.NewAccountMeta(acc.FreeTradeState, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(acc.ProgramAsSigner, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	metas = append(metas, acc.CreatorAccounts...)
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

type escrowAccounts struct {
	Wallet            solana.PublicKey
	PaymentAccount    solana.PublicKey
	TransferAuthority solana.PublicKey
	EscrowPayment     solana.PublicKey
	TreasuryMint      solana.PublicKey
	Authority         solana.PublicKey
	AuctionHouse      solana.PublicKey
	FeeAccount        solana.PublicKey
}

func (a *Assembler) newDepositInstruction(acc escrowAccounts, args escrowArgs) (solana.Instruction, error) {
	data, err := encodeArgs(ixDeposit, args)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(acc.Wallet, false, true),
		solana.NewAccountMeta(acc.PaymentAccount, true, false),
		solana.NewAccountMeta(acc.TransferAuthority, false, false),
		solana.NewAccountMeta(acc.EscrowPayment, true, false),
		solana.NewAccountMeta(acc.TreasuryMint, false, false),
		solana.NewAccountMeta(acc.Authority, false, false),
		solana.NewAccountMeta(acc.AuctionHouse, false, false),
		solana.NewAccountMeta(acc.FeeAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

func (a *Assembler) newWithdrawInstruction(acc escrowAccounts, args escrowArgs) (solana.Instruction, error) {
	data, err := encodeArgs(ixWithdraw, args)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(acc.Wallet, false, false),
		solana.NewAccountMeta(acc.PaymentAccount, true, false),
		solana.NewAccountMeta(acc.EscrowPayment, true, false),
		solana.NewAccountMeta(acc.TreasuryMint, false, false),
		solana.NewAccountMeta(acc.Authority, false, false),
		solana.NewAccountMeta(acc.AuctionHouse, false, false),
		solana.NewAccountMeta(acc.FeeAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

type cancelAccounts struct {
	Wallet       solana.PublicKey
	TokenAccount solana.PublicKey
	TokenMint    solana.PublicKey
	Authority    solana.PublicKey
	AuctionHouse solana.PublicKey
	FeeAccount   solana.PublicKey
	TradeState   solana.PublicKey
}

func (a *Assembler) newCancelInstruction(acc cancelAccounts, args cancelArgs) (solana.Instruction, error) {
	data, err := encodeArgs(ixCancel, args)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(acc.Wallet, true, false),
		solana.NewAccountMeta(acc.TokenAccount, true, false),
		solana.NewAccountMeta(acc.TokenMint, false, false),
		solana.NewAccountMeta(acc.Authority, false, false),
		solana.NewAccountMeta(acc.AuctionHouse, false, false),
		solana.NewAccountMeta(acc.FeeAccount, true, false),
		solana.NewAccountMeta(acc.TradeState, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

// newPrintReceiptInstruction covers the listing and bid receipt variants;
// both print against the bookkeeper that co-signs account creation.
func (a *Assembler) newPrintReceiptInstruction(name string, receipt, bookkeeper solana.PublicKey, bump uint8) (solana.Instruction, error) {
	data, err := encodeArgs(name, receiptArgs{ReceiptBump: bump})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(receipt, true, false),
		solana.NewAccountMeta(bookkeeper, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
	}
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

func (a *Assembler) newPrintPurchaseReceiptInstruction(purchaseReceipt, listingReceipt, bidReceipt, bookkeeper solana.PublicKey, bump uint8) (solana.Instruction, error) {
	data, err := encodeArgs(ixPrintPurchaseReceipt, receiptArgs{ReceiptBump: bump})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(purchaseReceipt, true, false),
		solana.NewAccountMeta(listingReceipt, true, false),
		solana.NewAccountMeta(bidReceipt, true, false),
		solana.NewAccountMeta(bookkeeper, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
	}
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

func (a *Assembler) newCancelReceiptInstruction(name string, receipt solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeArgs(name, nil)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(receipt, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
	}
	return solana.NewInstruction(a.cfg.Programs.AuctionHouseID(), metas, data), nil
}

// sameData reports whether two instructions carry identical payloads;
// used by tests comparing determinism of repeated assembly.
func sameData(a, b solana.Instruction) bool {
	da, errA := a.Data()
	db, errB := b.Data()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(da, db)
}
