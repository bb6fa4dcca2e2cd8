package auctionhouse

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ReceiptState tracks whether a receipt is still live. State moves one
// way: once retired a receipt never reactivates.
type ReceiptState uint8

const (
	ReceiptActive ReceiptState = iota
	ReceiptRetired
)

// ReceiptKind distinguishes the three receipt account schemas.
type ReceiptKind uint8

const (
	ListingReceiptKind ReceiptKind = iota
	BidReceiptKind
	PurchaseReceiptKind
)

func (k ReceiptKind) String() string {
	switch k {
	case ListingReceiptKind:
		return "listing_receipt"
	case BidReceiptKind:
		return "bid_receipt"
	case PurchaseReceiptKind:
		return "purchase_receipt"
	}
	return fmt.Sprintf("receipt(%d)", uint8(k))
}

// ReceiptHandle is a derived receipt address plus the lifecycle state the
// assembler knows about it. The state is local bookkeeping over the
// instructions this process has assembled, not an on-chain read.
type ReceiptHandle struct {
	Kind    ReceiptKind
	Address solana.PublicKey
	Bump    uint8
	State   ReceiptState
}

// printListingReceipt emits the receipt-creation instruction for a fresh
// listing. The bookkeeper is an ephemeral key that co-signs account
// creation and carries no funds afterwards.
func (a *Assembler) printListingReceipt(handle *ReceiptHandle, bookkeeper solana.PublicKey) (solana.Instruction, error) {
	if handle.State == ReceiptRetired {
		return nil, fmt.Errorf("listing receipt %s: %w", handle.Address, ErrReceiptAlreadyRetired)
	}
	return a.newPrintReceiptInstruction(ixPrintListingReceipt, handle.Address, bookkeeper, handle.Bump)
}

// printBidReceipt emits the receipt-creation instruction for a fresh bid.
func (a *Assembler) printBidReceipt(handle *ReceiptHandle, bookkeeper solana.PublicKey) (solana.Instruction, error) {
	if handle.State == ReceiptRetired {
		return nil, fmt.Errorf("bid receipt %s: %w", handle.Address, ErrReceiptAlreadyRetired)
	}
	return a.newPrintReceiptInstruction(ixPrintBidReceipt, handle.Address, bookkeeper, handle.Bump)
}

// printPurchaseReceipt links a settled sale back to both sides' receipts.
func (a *Assembler) printPurchaseReceipt(purchase *ReceiptHandle, listing, bid solana.PublicKey, bookkeeper solana.PublicKey) (solana.Instruction, error) {
	if purchase.State == ReceiptRetired {
		return nil, fmt.Errorf("purchase receipt %s: %w", purchase.Address, ErrReceiptAlreadyRetired)
	}
	return a.newPrintPurchaseReceiptInstruction(purchase.Address, listing, bid, bookkeeper, purchase.Bump)
}

// retireReceipt emits the cancellation instruction for a listing or bid
// receipt and marks the handle retired. Retiring twice is an error.
func (a *Assembler) retireReceipt(handle *ReceiptHandle) (solana.Instruction, error) {
	if handle.State == ReceiptRetired {
		return nil, fmt.Errorf("%s %s: %w", handle.Kind, handle.Address, ErrReceiptAlreadyRetired)
	}
	var name string
	switch handle.Kind {
	case ListingReceiptKind:
		name = ixCancelListingReceipt
	case BidReceiptKind:
		name = ixCancelBidReceipt
	default:
		return nil, fmt.Errorf("%s cannot be retired directly", handle.Kind)
	}
	ix, err := a.newCancelReceiptInstruction(name, handle.Address)
	if err != nil {
		return nil, err
	}
	handle.State = ReceiptRetired
	return ix, nil
}
