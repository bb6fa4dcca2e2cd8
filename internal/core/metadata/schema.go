// Package metadata decodes token-metadata and receipt accounts and
// resolves creator royalty splits. Layouts follow the on-chain programs
// byte for byte; decoding stops after the fields this layer consumes, so
// trailing fields added by later program versions are ignored rather than
// rejected.
package metadata

import (
	"crypto/sha256"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Metadata account keys.
// Reference: mpl-token-metadata state Key enum.
const (
	KeyUninitialized   uint8 = 0
	KeyMetadataV1      uint8 = 4
	KeyMasterEditionV1 uint8 = 2
	KeyMasterEditionV2 uint8 = 6
	KeyEditionV1       uint8 = 1
	KeyEditionMarker   uint8 = 7
)

// Creator is one entry of the metadata creator list. Share is a whole
// percentage on chain; the royalty resolver works in basis points.
type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

// Data is the inner metadata payload.
type Data struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator `bin:"optional"`
}

// Metadata is the token-metadata account prefix this layer consumes.
type Metadata struct {
	Key                 uint8
	UpdateAuthority     solana.PublicKey
	Mint                solana.PublicKey
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
}

// DecodeMetadata decodes a raw token-metadata account.
func DecodeMetadata(data []byte) (*Metadata, error) {
	if len(data) == 0 {
		return nil, errors.New("empty metadata account data")
	}

	var m Metadata
	dec := bin.NewBorshDecoder(data)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	if m.Key != KeyMetadataV1 {
		return nil, fmt.Errorf("account is not a metadata account (key %d)", m.Key)
	}
	return &m, nil
}

// Creators returns the creator list, or nil when the metadata has none.
func (m *Metadata) Creators() []Creator {
	if m.Data.Creators == nil {
		return nil
	}
	return *m.Data.Creators
}

// Receipt account discriminators (first 8 bytes of the account data).
// Reference: anchor account discriminator, sha256("account:<Name>")[:8].
var (
	listingReceiptDiscriminator  = accountDiscriminator("ListingReceipt")
	bidReceiptDiscriminator      = accountDiscriminator("BidReceipt")
	purchaseReceiptDiscriminator = accountDiscriminator("PurchaseReceipt")
)

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// ListingReceipt mirrors the on-chain listing receipt record.
type ListingReceipt struct {
	TradeState      solana.PublicKey
	Bookkeeper      solana.PublicKey
	AuctionHouse    solana.PublicKey
	Seller          solana.PublicKey
	Metadata        solana.PublicKey
	PurchaseReceipt *solana.PublicKey `bin:"optional"`
	Price           uint64
	TokenSize       uint64
	Bump            uint8
	TradeStateBump  uint8
	CreatedAt       int64
	CanceledAt      *int64 `bin:"optional"`
}

// BidReceipt mirrors the on-chain bid receipt record.
type BidReceipt struct {
	TradeState      solana.PublicKey
	Bookkeeper      solana.PublicKey
	AuctionHouse    solana.PublicKey
	Buyer           solana.PublicKey
	Metadata        solana.PublicKey
	TokenAccount    *solana.PublicKey `bin:"optional"`
	PurchaseReceipt *solana.PublicKey `bin:"optional"`
	Price           uint64
	TokenSize       uint64
	Bump            uint8
	TradeStateBump  uint8
	CreatedAt       int64
	CanceledAt      *int64 `bin:"optional"`
}

// PurchaseReceipt mirrors the on-chain purchase receipt record.
type PurchaseReceipt struct {
	Bookkeeper   solana.PublicKey
	Buyer        solana.PublicKey
	Seller       solana.PublicKey
	AuctionHouse solana.PublicKey
	Metadata     solana.PublicKey
	TokenSize    uint64
	Price        uint64
	Bump         uint8
	CreatedAt    int64
}

// DecodeListingReceipt decodes a raw listing receipt account.
func DecodeListingReceipt(data []byte) (*ListingReceipt, error) {
	payload, err := stripDiscriminator(data, listingReceiptDiscriminator, "listing receipt")
	if err != nil {
		return nil, err
	}
	var r ListingReceipt
	if err := bin.NewBorshDecoder(payload).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode listing receipt: %w", err)
	}
	return &r, nil
}

// DecodeBidReceipt decodes a raw bid receipt account.
func DecodeBidReceipt(data []byte) (*BidReceipt, error) {
	payload, err := stripDiscriminator(data, bidReceiptDiscriminator, "bid receipt")
	if err != nil {
		return nil, err
	}
	var r BidReceipt
	if err := bin.NewBorshDecoder(payload).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode bid receipt: %w", err)
	}
	return &r, nil
}

// DecodePurchaseReceipt decodes a raw purchase receipt account.
func DecodePurchaseReceipt(data []byte) (*PurchaseReceipt, error) {
	payload, err := stripDiscriminator(data, purchaseReceiptDiscriminator, "purchase receipt")
	if err != nil {
		return nil, err
	}
	var r PurchaseReceipt
	if err := bin.NewBorshDecoder(payload).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode purchase receipt: %w", err)
	}
	return &r, nil
}

func stripDiscriminator(data []byte, want [8]byte, kind string) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%s account too short: %d bytes", kind, len(data))
	}
	var got [8]byte
	copy(got[:], data[:8])
	if got != want {
		return nil, fmt.Errorf("account is not a %s (discriminator mismatch)", kind)
	}
	return data[8:], nil
}
