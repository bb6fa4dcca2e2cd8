package metadata

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// ErrInvalidRoyaltyConfig marks a creator list whose shares exceed 100%.
// The input data is untrustworthy; the sale must not be assembled.
var ErrInvalidRoyaltyConfig = errors.New("invalid royalty config: creator shares exceed 10000 basis points")

// totalBasisPoints is 100% expressed in basis points.
const totalBasisPoints = 10_000

// CreatorShare is one creator's cut of a sale.
type CreatorShare struct {
	Address     solana.PublicKey
	BasisPoints uint16
	Verified    bool
	Amount      uint64
}

// Resolution is the royalty split of a sale price: every creator's share,
// the seller's residual, and the remaining-accounts list an execute-sale
// instruction appends so the program can credit each creator.
type Resolution struct {
	Shares         []CreatorShare
	SellerProceeds uint64
	RoyaltyTotal   uint64

	// RemainingAccounts lists only verified creators. Unverified creators
	// still reduce seller proceeds (the program's accounting does not
	// care about verification) but receive no account entry.
	RemainingAccounts solana.AccountMetaSlice
}

// ResolveRoyalties computes the royalty split of price according to the
// metadata's seller-fee-basis-points and creator list.
//
// The royalty pool is price * sellerFeeBasisPoints / 10000. Each creator's
// cut is the pool scaled by their share; flooring remainders are handed
// back one unit at a time to creators in list order, so the pool is
// distributed exactly and conservation holds:
//
//	sum(creator amounts) + seller proceeds == price
func ResolveRoyalties(meta *Metadata, price uint64) (*Resolution, error) {
	creators := meta.Creators()

	var sumBps uint64
	for _, c := range creators {
		sumBps += uint64(c.Share) * 100
	}
	if sumBps > totalBasisPoints {
		return nil, fmt.Errorf("%w: sum is %d", ErrInvalidRoyaltyConfig, sumBps)
	}

	pool := scaleByBps(price, uint64(meta.Data.SellerFeeBasisPoints))

	res := &Resolution{
		Shares:       make([]CreatorShare, 0, len(creators)),
		RoyaltyTotal: pool,
	}

	var distributed uint64
	for _, c := range creators {
		bps := uint64(c.Share) * 100
		amount := scaleByBps(pool, bps)
		distributed += amount
		res.Shares = append(res.Shares, CreatorShare{
			Address:     c.Address,
			BasisPoints: uint16(bps),
			Verified:    c.Verified,
			Amount:      amount,
		})
	}

	// The pool only distributes fully when shares cover 100%; anything a
	// partial creator list leaves unclaimed stays with the seller.
	allocated := scaleByBps(pool, sumBps)
	for i := range res.Shares {
		if distributed >= allocated {
			break
		}
		res.Shares[i].Amount++
		distributed++
	}

	res.SellerProceeds = price - distributed

	for _, s := range res.Shares {
		if !s.Verified {
			continue
		}
		res.RemainingAccounts = append(res.RemainingAccounts,
			solana.NewAccountMeta(s.Address, true, false))
	}

	return res, nil
}

// scaleByBps returns value * bps / 10000 without intermediate overflow.
func scaleByBps(value, bps uint64) uint64 {
	v := new(big.Int).SetUint64(value)
	v.Mul(v, new(big.Int).SetUint64(bps))
	v.Quo(v, big.NewInt(totalBasisPoints))
	return v.Uint64()
}
