package config

import "github.com/spf13/viper"

// Mainnet deployments the original marketplace runs against. The program
// ids are fixed external contracts; the auction-house instance is the
// marketplace's own.
const (
	DefaultAuctionHouseProgram  = "hausS13jsjafwWwGqZTUQRmWyvyxn9EQpqMwV1PBBmk"
	DefaultTokenMetadataProgram = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	DefaultAuctionHouseAddress  = "4w2BVBfV86NBm3ytL1AuHxToBV7Kx5YahdMRgyyYFoRj"

	// WrappedSOLMint is the native-coin mint; a treasury mint equal to it
	// selects the native payment rail.
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// setDefaults seeds viper with the mainnet defaults so a minimal config
// file only needs to override what differs.
func setDefaults(v *viper.Viper) {
	v.SetDefault("programs.auction_house", DefaultAuctionHouseProgram)
	v.SetDefault("programs.token_metadata", DefaultTokenMetadataProgram)

	v.SetDefault("auction_house.address", DefaultAuctionHouseAddress)
	v.SetDefault("auction_house.treasury_mint", WrappedSOLMint)

	v.SetDefault("dao.verified", []string{})
}
