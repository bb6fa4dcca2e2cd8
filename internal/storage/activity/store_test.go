package activity

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, Record{
			Wallet:    wallet,
			TokenMint: mint,
			State:     uint8(i),
			Price:     uint64(100 * (i + 1)),
			TokenSize: 1,
			UnixNano:  int64(1000 + i),
		}))
	}

	records, err := store.History(ctx, wallet, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	require.Equal(t, int64(1002), records[0].UnixNano)
	require.Equal(t, uint64(300), records[0].Price)
	require.Equal(t, int64(1000), records[2].UnixNano)

	limited, err := store.History(ctx, wallet, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, int64(1002), limited[0].UnixNano)
}

func TestHistoryIsScopedPerWallet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	require.NoError(t, store.Append(ctx, Record{Wallet: alice, Price: 1, UnixNano: 1}))
	require.NoError(t, store.Append(ctx, Record{Wallet: bob, Price: 2, UnixNano: 2}))

	records, err := store.History(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, alice, records[0].Wallet)
}

func TestLatest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	wallet := solana.NewWallet().PublicKey()

	_, err := store.Latest(ctx, wallet)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Append(ctx, Record{Wallet: wallet, Price: 5, UnixNano: 10}))
	require.NoError(t, store.Append(ctx, Record{Wallet: wallet, Price: 9, UnixNano: 20}))

	latest, err := store.Latest(ctx, wallet)
	require.NoError(t, err)
	require.Equal(t, uint64(9), latest.Price)
}

func TestClosedStoreRefusesOperations(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())

	err := store.Append(context.Background(), Record{Wallet: solana.NewWallet().PublicKey()})
	require.ErrorIs(t, err, ErrStoreClosed)

	_, err = store.History(context.Background(), solana.NewWallet().PublicKey(), 0)
	require.ErrorIs(t, err, ErrStoreClosed)
}
