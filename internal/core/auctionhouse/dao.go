package auctionhouse

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ExpertVagabond/grape-art/internal/config"
)

// DAOResolver maps a community wallet onto the auction-house instance it
// is allowed to act through. Delegated flows refuse any wallet that is
// not in the verified registry.
type DAOResolver struct {
	registry config.DAORegistry
	house    config.AuctionHouseConfig
}

// NewDAOResolver builds a resolver over the configured registry.
func NewDAOResolver(registry config.DAORegistry, house config.AuctionHouseConfig) *DAOResolver {
	return &DAOResolver{registry: registry, house: house}
}

// Resolve returns the auction-house instance a verified community wallet
// delegates through. Unregistered wallets get ErrUnverifiedDelegate.
func (r *DAOResolver) Resolve(community solana.PublicKey) (config.AuctionHouseConfig, error) {
	if !r.registry.Contains(community) {
		return config.AuctionHouseConfig{}, fmt.Errorf("community %s is not a registered delegate: %w",
			community, ErrUnverifiedDelegate)
	}
	return r.house, nil
}

// Verified reports whether the wallet appears in the registry without
// resolving an instance.
func (r *DAOResolver) Verified(community solana.PublicKey) bool {
	return r.registry.Contains(community)
}
