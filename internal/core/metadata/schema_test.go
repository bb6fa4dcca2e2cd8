package metadata

import (
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/stretchr/testify/require"
)

func TestDecodeMetadata(t *testing.T) {
	creators := []Creator{
		{Address: creatorKey(1), Verified: true, Share: 100},
	}
	src := Metadata{
		Key:             KeyMetadataV1,
		UpdateAuthority: creatorKey(9),
		Mint:            creatorKey(8),
		Data: Data{
			Name:                 "Grape #1",
			Symbol:               "GRAPE",
			URI:                  "https://arweave.net/abc",
			SellerFeeBasisPoints: 500,
			Creators:             &creators,
		},
		PrimarySaleHappened: true,
		IsMutable:           true,
	}

	raw, err := bin.MarshalBorsh(&src)
	require.NoError(t, err)

	// Real accounts carry trailing fields newer program versions added;
	// the decoder must tolerate them.
	raw = append(raw, 0x01, 0xFF, 0x00)

	got, err := DecodeMetadata(raw)
	require.NoError(t, err)
	require.Equal(t, src.Mint, got.Mint)
	require.Equal(t, uint16(500), got.Data.SellerFeeBasisPoints)
	require.Len(t, got.Creators(), 1)
	require.True(t, got.Creators()[0].Verified)
}

func TestDecodeMetadataRejectsWrongKey(t *testing.T) {
	src := Metadata{Key: KeyMasterEditionV2}
	raw, err := bin.MarshalBorsh(&src)
	require.NoError(t, err)

	_, err = DecodeMetadata(raw)
	require.Error(t, err)

	_, err = DecodeMetadata(nil)
	require.Error(t, err)
}

func TestDecodeListingReceipt(t *testing.T) {
	canceled := int64(1700000000)
	src := ListingReceipt{
		TradeState:   creatorKey(1),
		Bookkeeper:   creatorKey(2),
		AuctionHouse: creatorKey(3),
		Seller:       creatorKey(4),
		Metadata:     creatorKey(5),
		Price:        1_500_000_000,
		TokenSize:    1,
		Bump:         254,
		CreatedAt:    1690000000,
		CanceledAt:   &canceled,
	}
	payload, err := bin.MarshalBorsh(&src)
	require.NoError(t, err)

	d := listingReceiptDiscriminator
	raw := append(d[:], payload...)

	got, err := DecodeListingReceipt(raw)
	require.NoError(t, err)
	require.Equal(t, src.Seller, got.Seller)
	require.Equal(t, src.Price, got.Price)
	require.NotNil(t, got.CanceledAt)
	require.Equal(t, canceled, *got.CanceledAt)

	// A bid receipt discriminator must not decode as a listing receipt.
	_, err = DecodeBidReceipt(raw)
	require.Error(t, err)
}
