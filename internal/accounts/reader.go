// Package accounts is the assembly layer's only view of on-chain state.
// Assemblers read metadata, balances and account existence through the
// Reader interface; they never submit anything. Addresses are derived by
// the caller, so the reader stays a dumb fetch-and-decode boundary.
package accounts

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/ExpertVagabond/grape-art/internal/core/metadata"
)

// ErrAccountNotFound reports a fetch against an address with no account.
var ErrAccountNotFound = errors.New("account not found")

// Reader fetches and decodes the account state an assembly needs. Every
// read is an independent snapshot; the on-chain program re-checks
// consistency at submission time, so the reader makes no transactional
// guarantees across calls.
type Reader interface {
	// Metadata fetches and decodes the token-metadata account at addr.
	Metadata(ctx context.Context, addr solana.PublicKey) (*metadata.Metadata, error)

	// LamportBalance returns the native balance of an account, zero when
	// the account does not exist.
	LamportBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)

	// TokenBalance returns the token amount held by a token account in
	// base units, zero when the account does not exist.
	TokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)

	// MintDecimals returns the decimals of a fungible mint.
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)

	// AccountExists reports whether an account exists at addr.
	AccountExists(ctx context.Context, addr solana.PublicKey) (bool, error)

	// TokenHolder returns the token account currently holding the supply
	// of a non-fungible mint.
	TokenHolder(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
}
