package auctionhouse

import "errors"

// Assembly error taxonomy. Every failure surfaces one of these kinds so a
// calling UI can distinguish a trust failure from an arithmetic one; none
// of them is retryable, because assembly never touches the network for
// anything but reads.
var (
	// ErrDerivationExhausted means no valid bump seed exists for a
	// program-derived address. Practically unreachable, but it must be
	// surfaced rather than silently defaulted when it happens.
	ErrDerivationExhausted = errors.New("derivation exhausted: no valid bump seed found")

	// ErrUnverifiedDelegate rejects a delegated flow whose claimed
	// collective is not in the verified registry. Security relevant: it
	// must never be downgraded to acting as the literal caller.
	ErrUnverifiedDelegate = errors.New("unverified delegate: collective not in registry")

	// ErrReceiptAlreadyRetired rejects retiring a receipt that was
	// already retired. The caller may treat the trade as canceled.
	ErrReceiptAlreadyRetired = errors.New("receipt already retired")

	// ErrInsufficientEscrowBalance reports an exact-amount withdrawal
	// that exceeds the escrow balance. Capped withdrawal paths never
	// raise it.
	ErrInsufficientEscrowBalance = errors.New("insufficient escrow balance")
)
