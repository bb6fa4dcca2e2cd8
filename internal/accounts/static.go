package accounts

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ExpertVagabond/grape-art/internal/core/metadata"
)

// Static is an in-memory Reader for tests and dry-run assembly. Every map
// is keyed by account address; anything absent behaves like a missing
// account.
type Static struct {
	Metadatas     map[solana.PublicKey]*metadata.Metadata
	Lamports      map[solana.PublicKey]uint64
	TokenAmounts  map[solana.PublicKey]uint64
	Decimals      map[solana.PublicKey]uint8
	ExtraAccounts map[solana.PublicKey]bool
	Holders       map[solana.PublicKey]solana.PublicKey
}

// NewStatic returns an empty static reader.
func NewStatic() *Static {
	return &Static{
		Metadatas:     make(map[solana.PublicKey]*metadata.Metadata),
		Lamports:      make(map[solana.PublicKey]uint64),
		TokenAmounts:  make(map[solana.PublicKey]uint64),
		Decimals:      make(map[solana.PublicKey]uint8),
		ExtraAccounts: make(map[solana.PublicKey]bool),
		Holders:       make(map[solana.PublicKey]solana.PublicKey),
	}
}

// Metadata implements Reader.
func (s *Static) Metadata(_ context.Context, addr solana.PublicKey) (*metadata.Metadata, error) {
	m, ok := s.Metadatas[addr]
	if !ok {
		return nil, fmt.Errorf("metadata %s: %w", addr, ErrAccountNotFound)
	}
	return m, nil
}

// LamportBalance implements Reader.
func (s *Static) LamportBalance(_ context.Context, addr solana.PublicKey) (uint64, error) {
	return s.Lamports[addr], nil
}

// TokenBalance implements Reader.
func (s *Static) TokenBalance(_ context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	return s.TokenAmounts[tokenAccount], nil
}

// MintDecimals implements Reader.
func (s *Static) MintDecimals(_ context.Context, mint solana.PublicKey) (uint8, error) {
	d, ok := s.Decimals[mint]
	if !ok {
		return 0, fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
	}
	return d, nil
}

// TokenHolder implements Reader.
func (s *Static) TokenHolder(_ context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	h, ok := s.Holders[mint]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("mint %s has no holder: %w", mint, ErrAccountNotFound)
	}
	return h, nil
}

// AccountExists implements Reader.
func (s *Static) AccountExists(_ context.Context, addr solana.PublicKey) (bool, error) {
	if s.ExtraAccounts[addr] {
		return true, nil
	}
	if _, ok := s.Metadatas[addr]; ok {
		return true, nil
	}
	if _, ok := s.TokenAmounts[addr]; ok {
		return true, nil
	}
	if v := s.Lamports[addr]; v > 0 {
		return true, nil
	}
	return false, nil
}
