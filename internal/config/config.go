package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Logger    Logger    `mapstructure:"logger"`
	PriceFeed PriceFeed `mapstructure:"price_feed"`
	Swap      Swap      `mapstructure:"swap"`
}

// Server holds the configuration for the HTTP server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PriceFeed holds the configuration for the market-data feed client.
type PriceFeed struct {
	BaseURL         string  `mapstructure:"base_url"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
	RefreshInterval int     `mapstructure:"refresh_interval"`
}

// Swap holds the configuration for the settlement engine.
// Fee percents are plain percentages: 0.15 means 0.15%.
type Swap struct {
	BridgeAssets           []string `mapstructure:"bridge_assets"`
	DirectFeePercent       float64  `mapstructure:"direct_fee_percent"`
	TwoHopFeePercent       float64  `mapstructure:"two_hop_fee_percent"`
	DefaultSlippagePercent float64  `mapstructure:"default_slippage_percent"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("price_feed.rate_limit", 10) // requests per second
	viper.SetDefault("price_feed.rate_limit_burst", 5)
	viper.SetDefault("price_feed.refresh_interval", 5) // seconds
	viper.SetDefault("swap.direct_fee_percent", 0.1)
	viper.SetDefault("swap.two_hop_fee_percent", 0.15)
	viper.SetDefault("swap.default_slippage_percent", 0.5)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
