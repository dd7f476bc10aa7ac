package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config captures the runtime settings for the intent settlement daemon.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Chain     ChainConfig     `toml:"chain"`
	Storage   StorageConfig   `toml:"storage"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Log       LogConfig       `toml:"log"`
	Genesis   GenesisConfig   `toml:"genesis"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	ListenAddress   string `toml:"listen"`
	ReadTimeoutMs   int    `toml:"read_timeout_ms"`
	WriteTimeoutMs  int    `toml:"write_timeout_ms"`
	ShutdownGraceMs int    `toml:"shutdown_grace_ms"`
}

// ChainConfig tunes block production and the matching engine.
type ChainConfig struct {
	BlockIntervalMs  int    `toml:"block_interval_ms"`
	HubAsset         uint32 `toml:"hub_asset"`
	DustThreshold    string `toml:"dust_threshold"`
	MaxIntentsPerRun int    `toml:"max_intents_per_run"`
	SolverEnabled    bool   `toml:"solver_enabled"`
}

// StorageConfig locates the persistent intent inventory.
type StorageConfig struct {
	Path string `toml:"path"`
}

// RateLimitConfig bounds per-client request rates on the write endpoints.
type RateLimitConfig struct {
	RequestsPerMinute float64 `toml:"requests_per_minute"`
	Burst             int     `toml:"burst"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	Environment string `toml:"env"`
	File        string `toml:"file"`
	MaxSizeMB   int    `toml:"max_size_mb"`
	MaxBackups  int    `toml:"max_backups"`
}

// GenesisConfig seeds the ledger and the venue set at startup.
type GenesisConfig struct {
	Accounts []GenesisAccount `toml:"accounts"`
	Venues   []GenesisVenue   `toml:"venues"`
}

// GenesisAccount funds one (account, asset) balance.
type GenesisAccount struct {
	Address string `toml:"address"`
	Asset   uint32 `toml:"asset"`
	Balance string `toml:"balance"`
}

// GenesisVenue declares one liquidity venue. Kind is "xyk" or "stable".
type GenesisVenue struct {
	ID        string   `toml:"id"`
	Kind      string   `toml:"kind"`
	Account   string   `toml:"account"`
	Assets    []uint32 `toml:"assets"`
	FeeBps    int64    `toml:"fee_bps"`
	SpreadBps int64    `toml:"spread_bps"`
}

// Load reads the TOML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, fmt.Errorf("config path required")
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when a field is absent.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddress:   ":8645",
			ReadTimeoutMs:   5000,
			WriteTimeoutMs:  10000,
			ShutdownGraceMs: 5000,
		},
		Chain: ChainConfig{
			BlockIntervalMs:  1000,
			HubAsset:         0,
			DustThreshold:    "1000",
			MaxIntentsPerRun: 128,
			SolverEnabled:    true,
		},
		Storage: StorageConfig{Path: "intentnet.db"},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
			Burst:             20,
		},
		Log: LogConfig{MaxSizeMB: 128, MaxBackups: 3},
	}
}

func (cfg *Config) normalize() {
	cfg.Server.ListenAddress = strings.TrimSpace(cfg.Server.ListenAddress)
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8645"
	}
	cfg.Storage.Path = strings.TrimSpace(cfg.Storage.Path)
	cfg.Chain.DustThreshold = strings.TrimSpace(cfg.Chain.DustThreshold)
	if cfg.Chain.DustThreshold == "" {
		cfg.Chain.DustThreshold = "1000"
	}
	cfg.Log.Environment = strings.TrimSpace(cfg.Log.Environment)
	cfg.Log.File = strings.TrimSpace(cfg.Log.File)
}

// Validate rejects configurations the daemon cannot safely run with.
func (cfg Config) Validate() error {
	if cfg.Chain.BlockIntervalMs <= 0 {
		return fmt.Errorf("chain: block_interval_ms must be positive")
	}
	if _, ok := cfg.DustThreshold(); !ok {
		return fmt.Errorf("chain: dust_threshold %q is not a valid amount", cfg.Chain.DustThreshold)
	}
	if cfg.Chain.MaxIntentsPerRun <= 0 {
		return fmt.Errorf("chain: max_intents_per_run must be positive")
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage: path required")
	}
	if cfg.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("ratelimit: requests_per_minute must not be negative")
	}
	seen := make(map[string]struct{}, len(cfg.Genesis.Venues))
	for _, venue := range cfg.Genesis.Venues {
		id := strings.TrimSpace(venue.ID)
		if id == "" {
			return fmt.Errorf("genesis: venue id required")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("genesis: duplicate venue %q", id)
		}
		seen[id] = struct{}{}
		switch venue.Kind {
		case "xyk":
			if len(venue.Assets) != 2 {
				return fmt.Errorf("genesis: venue %q: xyk needs exactly two assets", id)
			}
		case "stable":
			if len(venue.Assets) < 2 {
				return fmt.Errorf("genesis: venue %q: stable needs at least two assets", id)
			}
		default:
			return fmt.Errorf("genesis: venue %q: unknown kind %q", id, venue.Kind)
		}
	}
	for _, account := range cfg.Genesis.Accounts {
		if _, ok := new(big.Int).SetString(strings.TrimSpace(account.Balance), 10); !ok {
			return fmt.Errorf("genesis: account %s: balance %q is not a valid amount", account.Address, account.Balance)
		}
	}
	return nil
}

// BlockInterval returns the block cadence as a duration.
func (cfg Config) BlockInterval() time.Duration {
	return time.Duration(cfg.Chain.BlockIntervalMs) * time.Millisecond
}

// DustThreshold parses the configured smallest-partial-fill size.
func (cfg Config) DustThreshold() (*big.Int, bool) {
	value, ok := new(big.Int).SetString(cfg.Chain.DustThreshold, 10)
	if !ok || value.Sign() <= 0 {
		return nil, false
	}
	return value, true
}
