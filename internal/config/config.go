package config

import (
	"github.com/gagliardetto/solana-go"
)

// Marketplace is the process-wide, immutable marketplace configuration.
// It is loaded once at startup and passed explicitly into the derivation
// engine and the DAO resolver; nothing in the assembly layer reads it as
// an ambient global.
type Marketplace struct {
	// Programs holds the on-chain program ids the assembly layer targets.
	Programs Programs `toml:"programs" mapstructure:"programs"`

	// AuctionHouse is the auction-house instance account every flow
	// operates against.
	AuctionHouse AuctionHouseConfig `toml:"auction_house" mapstructure:"auction_house"`

	// DAO is the registry of verified collectives allowed to act as the
	// effective seller/buyer in delegated flows.
	DAO DAORegistry `toml:"dao" mapstructure:"dao"`

	// DAORegistryFile optionally points at a separate registry file
	// (same role as a validators list: a static trust anchor loaded at
	// startup).
	DAORegistryFile string `toml:"dao_registry_file" mapstructure:"dao_registry_file"`

	configPath string `toml:"-" mapstructure:"-"`
}

// Programs holds the external program ids. The auction-house and
// token-metadata programs are fixed deployments; their account layouts and
// instruction encodings are whatever those deployments expect, byte for
// byte.
type Programs struct {
	AuctionHouse  string `toml:"auction_house" mapstructure:"auction_house"`
	TokenMetadata string `toml:"token_metadata" mapstructure:"token_metadata"`

	auctionHouse  solana.PublicKey
	tokenMetadata solana.PublicKey
}

// AuctionHouseID returns the parsed auction-house program id.
func (p Programs) AuctionHouseID() solana.PublicKey { return p.auctionHouse }

// TokenMetadataID returns the parsed token-metadata program id.
func (p Programs) TokenMetadataID() solana.PublicKey { return p.tokenMetadata }

// AuctionHouseConfig identifies the auction-house instance and the facts
// about it that derivations and instruction assembly need. Authority and
// treasury mint are properties of the on-chain instance; carrying them in
// config keeps assembly free of an extra account fetch per call.
type AuctionHouseConfig struct {
	Address      string `toml:"address" mapstructure:"address"`
	Authority    string `toml:"authority" mapstructure:"authority"`
	TreasuryMint string `toml:"treasury_mint" mapstructure:"treasury_mint"`

	address      solana.PublicKey
	authority    solana.PublicKey
	treasuryMint solana.PublicKey
}

// AddressKey returns the parsed auction-house instance address.
func (a AuctionHouseConfig) AddressKey() solana.PublicKey { return a.address }

// AuthorityKey returns the parsed auction-house authority.
func (a AuctionHouseConfig) AuthorityKey() solana.PublicKey { return a.authority }

// TreasuryMintKey returns the parsed treasury mint. The wrapped-SOL mint
// selects the native payment rail; anything else selects the SPL rail.
func (a AuctionHouseConfig) TreasuryMintKey() solana.PublicKey { return a.treasuryMint }

// DAORegistry is the static list of verified collective treasury
// addresses. Membership is the only thing that authorizes a delegated
// flow; an address outside the registry must never be downgraded to the
// literal caller.
type DAORegistry struct {
	Verified []string `toml:"verified" mapstructure:"verified"`

	verified []solana.PublicKey
}

// VerifiedKeys returns the parsed registry entries.
func (d DAORegistry) VerifiedKeys() []solana.PublicKey { return d.verified }

// Contains reports whether addr is a verified collective.
func (d DAORegistry) Contains(addr solana.PublicKey) bool {
	for _, k := range d.verified {
		if k.Equals(addr) {
			return true
		}
	}
	return false
}

// GetConfigPath returns the path the configuration was loaded from.
func (m *Marketplace) GetConfigPath() string { return m.configPath }
