package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig             `mapstructure:"server"`
	Networks map[string]NetworkConfig `mapstructure:"networks"`
	Broker   BrokerConfig             `mapstructure:"broker"`
	Scorer   ScorerConfig             `mapstructure:"scorer"`
	Cache    CacheConfig              `mapstructure:"cache"`
	Chat     ChatConfig               `mapstructure:"chat"`
	Database DatabaseConfig           `mapstructure:"database"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type NetworkConfig struct {
	RPCURL         string `mapstructure:"rpc_url"`
	ChainID        int64  `mapstructure:"chain_id"`
	ExplorerAPIURL string `mapstructure:"explorer_api_url"`
	ExplorerAPIKey string `mapstructure:"explorer_api_key"`
}

type BrokerConfig struct {
	MarketplaceURL string `mapstructure:"marketplace_url"`
	APIKey         string `mapstructure:"api_key"`
	PreferredModel string `mapstructure:"preferred_model"`
}

type ScorerConfig struct {
	// Mode selects the scoring engine: "local" or "remote".
	Mode string `mapstructure:"mode"`
}

type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type ChatConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxSessions   int           `mapstructure:"max_sessions"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.env", "development")
	v.SetDefault("networks.ethereum.rpc_url", "https://eth.llamarpc.com")
	v.SetDefault("networks.ethereum.chain_id", 1)
	v.SetDefault("networks.ethereum.explorer_api_url", "https://api.etherscan.io")
	v.SetDefault("networks.bsc.rpc_url", "https://bsc-dataseed.binance.org")
	v.SetDefault("networks.bsc.chain_id", 56)
	v.SetDefault("networks.bsc.explorer_api_url", "https://api.bscscan.com")
	v.SetDefault("networks.polygon.rpc_url", "https://polygon-rpc.com")
	v.SetDefault("networks.polygon.chain_id", 137)
	v.SetDefault("networks.polygon.explorer_api_url", "https://api.polygonscan.com")
	v.SetDefault("networks.0g.rpc_url", "https://evmrpc-testnet.0g.ai")
	v.SetDefault("networks.0g.chain_id", 16600)
	v.SetDefault("broker.preferred_model", "deepseek/deepseek-chat")
	v.SetDefault("scorer.mode", "local")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.sweep_interval", 10*time.Minute)
	v.SetDefault("chat.idle_timeout", 24*time.Hour)
	v.SetDefault("chat.sweep_interval", 10*time.Minute)
	v.SetDefault("chat.max_sessions", 1000)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file; a missing file falls back to defaults and env
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !strings.Contains(err.Error(), "no such file") {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if port := v.GetInt("PORT"); port != 0 {
		config.Server.Port = port
	}
	if env := v.GetString("NODE_ENV"); env != "" {
		config.Server.Env = env
	}
	if apiKey := v.GetString("MARKETPLACE_API_KEY"); apiKey != "" {
		config.Broker.APIKey = apiKey
	}
	if marketplaceURL := v.GetString("MARKETPLACE_URL"); marketplaceURL != "" {
		config.Broker.MarketplaceURL = marketplaceURL
	}

	rpcOverrides := map[string]string{
		"ethereum": "ETHEREUM_RPC",
		"bsc":      "BSC_RPC",
		"polygon":  "POLYGON_RPC",
		"0g":       "ZEROG_RPC",
	}
	keyOverrides := map[string]string{
		"ethereum": "ETHERSCAN_API_KEY",
		"bsc":      "BSCSCAN_API_KEY",
		"polygon":  "POLYGONSCAN_API_KEY",
	}
	for network, envVar := range rpcOverrides {
		if rpc := v.GetString(envVar); rpc != "" {
			nc := config.Networks[network]
			nc.RPCURL = rpc
			config.Networks[network] = nc
		}
	}
	for network, envVar := range keyOverrides {
		if key := v.GetString(envVar); key != "" {
			nc := config.Networks[network]
			nc.ExplorerAPIKey = key
			config.Networks[network] = nc
		}
	}

	return &config, nil
}
