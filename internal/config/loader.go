package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads marketplace configuration in priority order:
// 1. Built-in mainnet defaults
// 2. Configuration file (grapeart.toml)
// 3. Environment variables (GRAPEART_ prefix)
// 4. Separate DAO registry file, if configured
func LoadConfig(configPath string) (*Marketplace, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix("GRAPEART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Marketplace
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DAORegistryFile != "" {
		registry, err := loadDAORegistryFile(cfg.DAORegistryFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load dao registry: %w", err)
		}
		cfg.DAO.Verified = append(cfg.DAO.Verified, registry.Verified...)
	}

	cfg.configPath = configPath

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadDefaultConfig builds a configuration purely from the built-in
// defaults, with no file on disk.
func LoadDefaultConfig() (*Marketplace, error) {
	return LoadConfig("")
}

// loadDAORegistryFile reads a standalone registry file. TOML only; the
// registry is a trust anchor and gets no lenient fallback formats.
func loadDAORegistryFile(path string) (*DAORegistry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("dao registry file does not exist: %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read dao registry file %s: %w", path, err)
	}

	var registry DAORegistry
	if err := v.Unmarshal(&registry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dao registry: %w", err)
	}
	return &registry, nil
}

// SaveExampleConfig writes a commented starting-point configuration.
func SaveExampleConfig(configPath string) error {
	v := viper.New()
	for key, value := range exampleConfig() {
		v.Set(key, value)
	}
	v.SetConfigFile(configPath)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return nil
}

func exampleConfig() map[string]interface{} {
	return map[string]interface{}{
		"programs.auction_house":      DefaultAuctionHouseProgram,
		"programs.token_metadata":     DefaultTokenMetadataProgram,
		"auction_house.address":       DefaultAuctionHouseAddress,
		"auction_house.authority":     DefaultAuctionHouseAddress,
		"auction_house.treasury_mint": WrappedSOLMint,
		"dao.verified":                []string{},
	}
}
