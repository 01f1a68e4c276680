package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/internal/testutil"
	"github.com/opaline-labs/mintchain/storage"
	"github.com/opaline-labs/mintchain/vm/modules/minter"
	"github.com/opaline-labs/mintchain/wallet"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty chain id", func(c *Config) { c.ChainID = "" }},
		{"bad backend", func(c *Config) { c.Backend = "sqlite" }},
		{"zero interval", func(c *Config) { c.SealInterval = 0 }},
		{"cert without key", func(c *Config) { c.TLSCert = "cert.pem" }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"chain_id":"mainnet","backend":"pebble","rpc_addr":":9000"}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != "mainnet" || cfg.Backend != BackendPebble || cfg.RPCAddr != ":9000" {
		t.Errorf("loaded %+v", cfg)
	}
	// Unspecified fields keep defaults.
	if cfg.SealInterval != 2000 {
		t.Errorf("seal interval = %d", cfg.SealInterval)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file must error")
	}
}

func TestCreateGenesisBlock(t *testing.T) {
	db := testutil.NewMemDB()
	chain := core.NewBlockchain(storage.NewBlockStore(db))
	if err := chain.Init(); err != nil {
		t.Fatal(err)
	}
	state := storage.NewStateDB(db)
	sealerWallet, err := wallet.New()
	if err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Genesis = Genesis{
		Alloc: map[string]string{"alice": "1000"},
		Collection: minter.DeployParams{
			Owner:                 "owner",
			ImageBaseCid:          "img",
			MetadataBaseCid:       "meta",
			AmountOfTokens:        10,
			TokensLimitPerAddress: 3,
			Royalties:             250,
			SellingPrice:          big.NewInt(50),
		},
	}

	genesis, err := CreateGenesisBlock(cfg, chain, state, sealerWallet.PrivateKey())
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if genesis.Header.Height != 0 || genesis.Header.StateRoot == "" {
		t.Errorf("genesis header %+v", genesis.Header)
	}
	if chain.Height() != 0 || chain.Tip() == nil {
		t.Error("chain must have a tip at height 0")
	}

	acc, _ := state.GetAccount("alice")
	if acc.Balance.Int64() != 1000 {
		t.Errorf("alice balance = %s", acc.Balance)
	}
	if paused, _ := minter.IsPaused(state); !paused {
		t.Error("collection must deploy paused")
	}
	if left, _ := minter.TotalTokensLeft(state); left != 10 {
		t.Errorf("tokens left = %d", left)
	}

	// Idempotent on an initialised chain.
	again, err := CreateGenesisBlock(cfg, chain, state, sealerWallet.PrivateKey())
	if err != nil {
		t.Fatal(err)
	}
	if again.Hash != genesis.Hash {
		t.Error("resume must return the existing tip")
	}
}

func TestCreateGenesisBlockBadAlloc(t *testing.T) {
	db := testutil.NewMemDB()
	chain := core.NewBlockchain(storage.NewBlockStore(db))
	_ = chain.Init()
	state := storage.NewStateDB(db)
	sealerWallet, _ := wallet.New()

	cfg := Default()
	cfg.Genesis = Genesis{
		Alloc: map[string]string{"alice": "not-a-number"},
		Collection: minter.DeployParams{
			Owner: "owner", ImageBaseCid: "i", MetadataBaseCid: "m",
			AmountOfTokens: 1, TokensLimitPerAddress: 1,
		},
	}
	if _, err := CreateGenesisBlock(cfg, chain, state, sealerWallet.PrivateKey()); err == nil {
		t.Error("invalid allocation must fail")
	}
}

func TestEnsureTLSCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "rpc.crt")
	key := filepath.Join(dir, "rpc.key")

	if err := EnsureTLSCert(cert, key); err != nil {
		t.Fatalf("generate: %v", err)
	}
	certData, err := os.ReadFile(cert)
	if err != nil {
		t.Fatal(err)
	}
	if len(certData) == 0 {
		t.Error("empty certificate")
	}

	// Existing files are never overwritten.
	if err := EnsureTLSCert(cert, key); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(cert)
	if string(after) != string(certData) {
		t.Error("existing certificate was regenerated")
	}

	// No-op when TLS is disabled.
	if err := EnsureTLSCert("", ""); err != nil {
		t.Errorf("disabled TLS: %v", err)
	}
}
