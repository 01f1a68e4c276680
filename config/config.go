// Package config loads node configuration and builds the genesis block.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/opaline-labs/mintchain/vm/modules/minter"
)

// Supported storage backends.
const (
	BackendLevelDB = "leveldb"
	BackendPebble  = "pebble"
)

// Genesis describes the chain's initial state: funded accounts and the
// collection deployed at block zero.
type Genesis struct {
	// Alloc maps addresses to initial balances in base units (decimal string).
	Alloc map[string]string `json:"alloc"`
	// Collection configures the deployed minter contract.
	Collection minter.DeployParams `json:"collection"`
}

// Config is the full node configuration.
type Config struct {
	ChainID      string  `json:"chain_id"`
	DataDir      string  `json:"data_dir"`
	Backend      string  `json:"backend"` // leveldb or pebble
	RPCAddr      string  `json:"rpc_addr"`
	RPCAuthToken string  `json:"rpc_auth_token,omitempty"`
	TLSCert      string  `json:"tls_cert,omitempty"`
	TLSKey       string  `json:"tls_key,omitempty"`
	SealInterval int     `json:"seal_interval_ms"`
	MaxBlockTxs  int     `json:"max_block_txs"`
	Genesis      Genesis `json:"genesis"`
}

// Default returns a config suitable for a local development chain.
func Default() *Config {
	return &Config{
		ChainID:      "mintchain-local",
		DataDir:      "./data",
		Backend:      BackendLevelDB,
		RPCAddr:      ":8545",
		SealInterval: 2000,
		MaxBlockTxs:  500,
	}
}

// Load reads and validates a JSON config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.ChainID == "" {
		return fmt.Errorf("chain_id required")
	}
	if c.Backend != BackendLevelDB && c.Backend != BackendPebble {
		return fmt.Errorf("backend must be %q or %q, got %q", BackendLevelDB, BackendPebble, c.Backend)
	}
	if c.SealInterval <= 0 {
		return fmt.Errorf("seal_interval_ms must be positive")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}
	return nil
}

// SealIntervalDuration returns the seal interval as a time.Duration.
func (c *Config) SealIntervalDuration() time.Duration {
	return time.Duration(c.SealInterval) * time.Millisecond
}
