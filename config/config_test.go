package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intentd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[storage]
path = "/tmp/intentnet.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.Server.ListenAddress)
	require.Equal(t, 1000, cfg.Chain.BlockIntervalMs)
	require.True(t, cfg.Chain.SolverEnabled)

	dust, ok := cfg.DustThreshold()
	require.True(t, ok)
	require.Zero(t, dust.Cmp(big.NewInt(1000)))
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = "127.0.0.1:9000"

[chain]
block_interval_ms = 250
hub_asset = 0
dust_threshold = "5000"
max_intents_per_run = 64

[storage]
path = "/var/lib/intentnet/intents.db"

[ratelimit]
requests_per_minute = 120
burst = 5

[[genesis.accounts]]
address = "0x0101010101010101010101010101010101010101"
asset = 1
balance = "1000000000"

[[genesis.venues]]
id = "xyk-1-0"
kind = "xyk"
account = "0x0202020202020202020202020202020202020202"
assets = [1, 0]
fee_bps = 30
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddress)
	require.Equal(t, 250, cfg.Chain.BlockIntervalMs)
	require.Len(t, cfg.Genesis.Accounts, 1)
	require.Len(t, cfg.Genesis.Venues, 1)
	require.Equal(t, "xyk", cfg.Genesis.Venues[0].Kind)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Chain.BlockIntervalMs = 0 }},
		{"bad dust", func(c *Config) { c.Chain.DustThreshold = "abc" }},
		{"negative dust", func(c *Config) { c.Chain.DustThreshold = "-5" }},
		{"missing storage", func(c *Config) { c.Storage.Path = "" }},
		{"xyk asset count", func(c *Config) {
			c.Genesis.Venues = []GenesisVenue{{ID: "v", Kind: "xyk", Assets: []uint32{1}}}
		}},
		{"unknown venue kind", func(c *Config) {
			c.Genesis.Venues = []GenesisVenue{{ID: "v", Kind: "clob", Assets: []uint32{1, 2}}}
		}},
		{"duplicate venue", func(c *Config) {
			c.Genesis.Venues = []GenesisVenue{
				{ID: "v", Kind: "xyk", Assets: []uint32{1, 0}},
				{ID: "v", Kind: "xyk", Assets: []uint32{2, 0}},
			}
		}},
		{"bad genesis balance", func(c *Config) {
			c.Genesis.Accounts = []GenesisAccount{{Address: "0x01", Asset: 1, Balance: "ten"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
