package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	APIBaseURL       string
	EthRPCEndpoints  []string
	TronAPIEndpoints []string
	ChainID          int64
	SlippageBps      int
	QuoteTimeout     time.Duration
	ConnectTimeout   time.Duration
	SendTimeout      time.Duration
	AutoConfirm      bool
	HistoryFile      string
	PrivateKey       string
	KeystorePath     string
	KeystorePassword string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".tron-bridge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("api_base_url", "https://core.api.allbridgecoreapi.net")
	viper.SetDefault("eth_rpc_endpoints", []string{
		"https://ethereum-rpc.publicnode.com",
		"https://eth.llamarpc.com",
		"https://rpc.ankr.com/eth",
	})
	viper.SetDefault("tron_api_endpoints", []string{
		"https://api.trongrid.io",
		"https://api.tronstack.io",
	})
	viper.SetDefault("chain_id", 1)
	viper.SetDefault("slippage_bps", 50)
	viper.SetDefault("quote_timeout", "45s")
	viper.SetDefault("connect_timeout", "30s")
	viper.SetDefault("send_timeout", "60s")
	viper.SetDefault("auto_confirm", false)

	// Read from environment variables
	viper.SetEnvPrefix("TRON_BRIDGE")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	// Create config struct. Signer material is not validated here:
	// read-only commands like quote and tokens work without one.
	cfg := &Config{
		APIBaseURL:       viper.GetString("api_base_url"),
		EthRPCEndpoints:  viper.GetStringSlice("eth_rpc_endpoints"),
		TronAPIEndpoints: viper.GetStringSlice("tron_api_endpoints"),
		ChainID:          viper.GetInt64("chain_id"),
		SlippageBps:      viper.GetInt("slippage_bps"),
		QuoteTimeout:     viper.GetDuration("quote_timeout"),
		ConnectTimeout:   viper.GetDuration("connect_timeout"),
		SendTimeout:      viper.GetDuration("send_timeout"),
		AutoConfirm:      viper.GetBool("auto_confirm"),
		HistoryFile:      viper.GetString("history_file"),
		PrivateKey:       viper.GetString("private_key"),
		KeystorePath:     viper.GetString("keystore_path"),
		KeystorePassword: viper.GetString("keystore_password"),
	}

	if len(cfg.EthRPCEndpoints) == 0 {
		return nil, fmt.Errorf("no Ethereum RPC endpoints configured. Set TRON_BRIDGE_ETH_RPC_ENDPOINTS or add eth_rpc_endpoints to .tron-bridge.yaml")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
