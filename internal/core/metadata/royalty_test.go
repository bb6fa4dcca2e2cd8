package metadata

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func creatorKey(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	b[31] = 1
	return solana.PublicKeyFromBytes(b[:])
}

func metaWith(feeBps uint16, creators ...Creator) *Metadata {
	m := &Metadata{
		Key:  KeyMetadataV1,
		Mint: creatorKey(0xAA),
		Data: Data{
			Name:                 "Test",
			Symbol:               "TST",
			SellerFeeBasisPoints: feeBps,
		},
	}
	if len(creators) > 0 {
		m.Data.Creators = &creators
	}
	return m
}

func TestResolveRoyaltiesConservation(t *testing.T) {
	testcases := []struct {
		name     string
		feeBps   uint16
		creators []Creator
		price    uint64
	}{
		{
			name:   "single verified creator",
			feeBps: 500,
			creators: []Creator{
				{Address: creatorKey(1), Verified: true, Share: 100},
			},
			price: 1_500_000_000,
		},
		{
			name:   "uneven three way split",
			feeBps: 1000,
			creators: []Creator{
				{Address: creatorKey(1), Verified: true, Share: 33},
				{Address: creatorKey(2), Verified: true, Share: 33},
				{Address: creatorKey(3), Verified: true, Share: 34},
			},
			price: 999_999_999,
		},
		{
			name:   "mixed verified and unverified",
			feeBps: 750,
			creators: []Creator{
				{Address: creatorKey(1), Verified: true, Share: 60},
				{Address: creatorKey(2), Verified: false, Share: 40},
			},
			price: 123_456_789,
		},
		{
			name:   "prime price forces rounding",
			feeBps: 333,
			creators: []Creator{
				{Address: creatorKey(1), Verified: true, Share: 50},
				{Address: creatorKey(2), Verified: true, Share: 50},
			},
			price: 1_000_000_007,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ResolveRoyalties(metaWith(tc.feeBps, tc.creators...), tc.price)
			require.NoError(t, err)

			var creatorTotal uint64
			for _, s := range res.Shares {
				creatorTotal += s.Amount
			}
			require.Equal(t, tc.price, creatorTotal+res.SellerProceeds,
				"creator shares plus seller residual must equal price exactly")

			// Nothing beyond the royalty pool ever leaves the seller.
			require.LessOrEqual(t, creatorTotal, res.RoyaltyTotal)
		})
	}
}

func TestResolveRoyaltiesRejectsOversubscribed(t *testing.T) {
	m := metaWith(500,
		Creator{Address: creatorKey(1), Verified: true, Share: 60},
		Creator{Address: creatorKey(2), Verified: true, Share: 60},
	)
	_, err := ResolveRoyalties(m, 1_000_000)
	require.ErrorIs(t, err, ErrInvalidRoyaltyConfig)
}

func TestResolveRoyaltiesSkipsUnverifiedInAccounts(t *testing.T) {
	m := metaWith(1000,
		Creator{Address: creatorKey(1), Verified: true, Share: 50},
		Creator{Address: creatorKey(2), Verified: false, Share: 50},
	)
	res, err := ResolveRoyalties(m, 1_000_000_000)
	require.NoError(t, err)

	// Both creators appear in the share accounting...
	require.Len(t, res.Shares, 2)
	require.NotZero(t, res.Shares[1].Amount)

	// ...but only the verified one gets a remaining-account entry.
	require.Len(t, res.RemainingAccounts, 1)
	require.Equal(t, creatorKey(1), res.RemainingAccounts[0].PublicKey)
	require.True(t, res.RemainingAccounts[0].IsWritable)
	require.False(t, res.RemainingAccounts[0].IsSigner)

	// The unverified creator's cut still reduces seller proceeds.
	require.Less(t, res.SellerProceeds, uint64(1_000_000_000)-res.Shares[0].Amount)
}

func TestResolveRoyaltiesZeroPrice(t *testing.T) {
	m := metaWith(500, Creator{Address: creatorKey(1), Verified: true, Share: 100})
	res, err := ResolveRoyalties(m, 0)
	require.NoError(t, err)

	require.Zero(t, res.RoyaltyTotal)
	require.Zero(t, res.SellerProceeds)
	for _, s := range res.Shares {
		require.Zero(t, s.Amount)
	}
	// The program still expects the creator accounts on a free transfer.
	require.Len(t, res.RemainingAccounts, 1)
}

func TestResolveRoyaltiesNoCreators(t *testing.T) {
	res, err := ResolveRoyalties(metaWith(500), 1_000_000_000)
	require.NoError(t, err)
	require.Empty(t, res.Shares)
	require.Empty(t, res.RemainingAccounts)
	require.Equal(t, uint64(1_000_000_000), res.SellerProceeds)
}
