package accounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ExpertVagabond/grape-art/internal/core/metadata"
)

// metadataCacheSize bounds the decoded-metadata cache. Metadata accounts
// for listed mints are effectively immutable during a session, so a small
// LRU removes the most common repeated fetch.
const metadataCacheSize = 256

// RPCReader is the Reader implementation backed by a Solana JSON-RPC
// endpoint.
type RPCReader struct {
	client    *rpc.Client
	metaCache *lru.Cache[solana.PublicKey, *metadata.Metadata]
}

// NewRPCReader builds a reader against the given RPC endpoint.
func NewRPCReader(endpoint string) (*RPCReader, error) {
	cache, err := lru.New[solana.PublicKey, *metadata.Metadata](metadataCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	return &RPCReader{
		client:    rpc.New(endpoint),
		metaCache: cache,
	}, nil
}

// Metadata implements Reader.
func (r *RPCReader) Metadata(ctx context.Context, addr solana.PublicKey) (*metadata.Metadata, error) {
	if cached, ok := r.metaCache.Get(addr); ok {
		return cached, nil
	}

	res, err := r.client.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("metadata %s: %w", addr, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to fetch metadata %s: %w", addr, err)
	}

	meta, err := metadata.DecodeMetadata(res.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("metadata %s: %w", addr, err)
	}

	r.metaCache.Add(addr, meta)
	return meta, nil
}

// LamportBalance implements Reader. A missing account reads as zero, the
// same thing an empty escrow means to the withdrawal paths.
func (r *RPCReader) LamportBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	res, err := r.client.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to fetch balance of %s: %w", addr, err)
	}
	return res.Value, nil
}

// TokenBalance implements Reader.
func (r *RPCReader) TokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	res, err := r.client.GetTokenAccountBalance(ctx, tokenAccount, rpc.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to fetch token balance of %s: %w", tokenAccount, err)
	}
	if res.Value == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token amount %q for %s: %w", res.Value.Amount, tokenAccount, err)
	}
	return amount, nil
}

// MintDecimals implements Reader.
func (r *RPCReader) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	var m token.Mint
	if err := r.client.GetAccountDataInto(ctx, mint, &m); err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
		}
		return 0, fmt.Errorf("failed to fetch mint %s: %w", mint, err)
	}
	return m.Decimals, nil
}

// AccountExists implements Reader.
func (r *RPCReader) AccountExists(ctx context.Context, addr solana.PublicKey) (bool, error) {
	_, err := r.client.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch account %s: %w", addr, err)
	}
	return true, nil
}

// TokenHolder implements Reader via the largest-accounts index; for a
// non-fungible mint the single unit sits in exactly one account.
func (r *RPCReader) TokenHolder(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	out, err := r.client.GetTokenLargestAccounts(ctx, mint, rpc.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return solana.PublicKey{}, fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
		}
		return solana.PublicKey{}, fmt.Errorf("failed to fetch holders of %s: %w", mint, err)
	}
	for _, holder := range out.Value {
		if holder.Amount != "0" {
			return holder.Address, nil
		}
	}
	return solana.PublicKey{}, fmt.Errorf("mint %s has no holder: %w", mint, ErrAccountNotFound)
}

// Warm prefetches a set of metadata accounts into the cache concurrently.
// Assemblies themselves read sequentially; warming happens before any
// assembly starts, typically for a page of listings at once.
func (r *RPCReader) Warm(ctx context.Context, addrs ...solana.PublicKey) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, addr := range addrs {
		g.Go(func() error {
			_, err := r.Metadata(ctx, addr)
			if errors.Is(err, ErrAccountNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
