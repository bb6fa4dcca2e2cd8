// Package activity persists a local log of every assembled transaction.
// The marketplace program keeps no index of who assembled what; this
// store is the process-local answer to "what did this wallet do here",
// keyed so one wallet's history is a single range scan.
package activity

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

var (
	ErrStoreClosed = errors.New("activity store is closed")
	ErrNotFound    = errors.New("activity record not found")
)

// keyPrefix namespaces activity records inside the shared database.
var keyPrefix = []byte("act/")

// Record is one assembled transaction: who acted, on which mint, how it
// was tagged, and for how much.
type Record struct {
	Wallet    solana.PublicKey
	TokenMint solana.PublicKey
	State     uint8
	Price     uint64
	TokenSize uint64
	UnixNano  int64
}

// Store is a pebble-backed append-only activity log.
type Store struct {
	db  *pebble.DB
	log zerolog.Logger
}

// Open opens or creates the store at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open activity store at %s: %w", path, err)
	}
	return &Store{db: db, log: log.With().Str("component", "activity").Logger()}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return ErrStoreClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// recordKey orders one wallet's records by time: prefix, wallet bytes,
// then a big-endian timestamp so lexicographic order is chronological.
func recordKey(wallet solana.PublicKey, unixNano int64) []byte {
	key := make([]byte, 0, len(keyPrefix)+solana.PublicKeyLength+8)
	key = append(key, keyPrefix...)
	key = append(key, wallet.Bytes()...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(unixNano))
	return append(key, ts[:]...)
}

// Append writes one record. A zero timestamp is stamped with now.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.UnixNano == 0 {
		rec.UnixNano = time.Now().UnixNano()
	}
	value, err := bin.MarshalBorsh(rec)
	if err != nil {
		return fmt.Errorf("failed to encode activity record: %w", err)
	}
	if err := s.db.Set(recordKey(rec.Wallet, rec.UnixNano), value, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write activity record: %w", err)
	}
	s.log.Debug().Str("wallet", rec.Wallet.String()).Uint8("state", rec.State).
		Uint64("price", rec.Price).Msg("recorded activity")
	return nil
}

// History returns a wallet's records newest first, at most limit of them.
// A limit of zero means no limit.
func (s *Store) History(ctx context.Context, wallet solana.PublicKey, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	lower := recordKey(wallet, 0)
	upper := recordKey(wallet, -1) // max uint64 timestamp
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("failed to open activity iterator: %w", err)
	}
	defer iter.Close()

	var records []Record
	for ok := iter.Last(); ok; ok = iter.Prev() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec Record
		if err := bin.NewBorshDecoder(iter.Value()).Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode activity record: %w", err)
		}
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("activity iteration failed: %w", err)
	}
	return records, nil
}

// Latest returns a wallet's most recent record.
func (s *Store) Latest(ctx context.Context, wallet solana.PublicKey) (Record, error) {
	records, err := s.History(ctx, wallet, 1)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("wallet %s: %w", wallet, ErrNotFound)
	}
	return records[0], nil
}
