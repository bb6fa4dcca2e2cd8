package config

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ValidateConfig parses and checks every address field. Parsing happens
// here, once, so downstream code only ever sees typed public keys.
func ValidateConfig(cfg *Marketplace) error {
	var err error

	if cfg.Programs.auctionHouse, err = parseKey("programs.auction_house", cfg.Programs.AuctionHouse); err != nil {
		return err
	}
	if cfg.Programs.tokenMetadata, err = parseKey("programs.token_metadata", cfg.Programs.TokenMetadata); err != nil {
		return err
	}

	if cfg.AuctionHouse.address, err = parseKey("auction_house.address", cfg.AuctionHouse.Address); err != nil {
		return err
	}
	if cfg.AuctionHouse.treasuryMint, err = parseKey("auction_house.treasury_mint", cfg.AuctionHouse.TreasuryMint); err != nil {
		return err
	}

	// Authority defaults to the instance address when unset; the default
	// mainnet instance is its own authority.
	if cfg.AuctionHouse.Authority == "" {
		cfg.AuctionHouse.authority = cfg.AuctionHouse.address
	} else if cfg.AuctionHouse.authority, err = parseKey("auction_house.authority", cfg.AuctionHouse.Authority); err != nil {
		return err
	}

	cfg.DAO.verified = cfg.DAO.verified[:0]
	seen := make(map[solana.PublicKey]bool, len(cfg.DAO.Verified))
	for i, entry := range cfg.DAO.Verified {
		key, err := parseKey(fmt.Sprintf("dao.verified[%d]", i), entry)
		if err != nil {
			return err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		cfg.DAO.verified = append(cfg.DAO.verified, key)
	}

	return nil
}

func parseKey(field, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", field)
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: invalid address %q: %w", field, value, err)
	}
	return key, nil
}
