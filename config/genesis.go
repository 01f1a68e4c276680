package config

import (
	"fmt"
	"math/big"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/crypto"
	"github.com/opaline-labs/mintchain/vm/modules/minter"
)

// CreateGenesisBlock initialises a fresh chain: credits the allocations,
// deploys the collection, and seals block zero. On an already initialised
// chain it returns the existing tip untouched.
func CreateGenesisBlock(cfg *Config, chain *core.Blockchain, state core.State, sealerPriv crypto.PrivateKey) (*core.Block, error) {
	if tip := chain.Tip(); tip != nil {
		return tip, nil
	}

	for addr, raw := range cfg.Genesis.Alloc {
		balance, ok := new(big.Int).SetString(raw, 10)
		if !ok || balance.Sign() < 0 {
			return nil, fmt.Errorf("invalid genesis allocation for %s: %q", addr, raw)
		}
		if err := state.SetAccount(&core.Account{Address: addr, Balance: balance}); err != nil {
			return nil, err
		}
	}

	if err := minter.Deploy(state, cfg.Genesis.Collection); err != nil {
		return nil, fmt.Errorf("deploy collection: %w", err)
	}

	block := core.NewBlock(0, "", sealerPriv.Public().Hex(), nil)
	block.Header.StateRoot = state.ComputeRoot()
	block.Sign(sealerPriv)

	if err := chain.AddBlock(block); err != nil {
		return nil, fmt.Errorf("add genesis block: %w", err)
	}
	if err := state.Commit(); err != nil {
		return nil, fmt.Errorf("commit genesis state: %w", err)
	}
	return block, nil
}
