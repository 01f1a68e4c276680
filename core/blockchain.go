package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is the storage layer's miss sentinel, shared by every keyspace.
var ErrNotFound = errors.New("not found")

// BlockStore persists blocks, the height index and the tip pointer.
// Implementations live in the storage package.
type BlockStore interface {
	GetBlock(hash string) (*Block, error)
	PutBlock(block *Block) error
	GetBlockByHeight(height int64) (*Block, error)
	PutBlockByHeight(height int64, hash string) error
	// GetTip reports ("", nil) for a chain with no blocks yet.
	GetTip() (string, error)
	SetTip(hash string) error
	// CommitBlock writes the block, its height index entry and the tip
	// pointer in one atomic batch.
	CommitBlock(block *Block) error
}

// Blockchain tracks the canonical chain in memory and persists every
// accepted block through its store.
type Blockchain struct {
	mu     sync.RWMutex
	store  BlockStore
	tip    *Block
	height int64
}

func NewBlockchain(store BlockStore) *Blockchain {
	return &Blockchain{store: store}
}

// Init loads the persisted tip, if any. A restarted node must call it
// before accepting blocks, or the first AddBlock would re-seal height 0.
func (bc *Blockchain) Init() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	tipHash, err := bc.store.GetTip()
	if err != nil {
		return fmt.Errorf("get tip: %w", err)
	}
	if tipHash == "" {
		return nil // fresh chain
	}
	tip, err := bc.store.GetBlock(tipHash)
	if err != nil {
		return fmt.Errorf("load tip block: %w", err)
	}
	bc.tip = tip
	bc.height = tip.Header.Height
	return nil
}

// AddBlock appends block to the chain. It must extend the current tip by
// exactly one height with a matching parent hash; the first block of a
// fresh chain is accepted at any height.
func (bc *Blockchain) AddBlock(block *Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if err := bc.checkExtendsTip(block); err != nil {
		return err
	}
	if err := bc.store.CommitBlock(block); err != nil {
		return fmt.Errorf("commit block: %w", err)
	}
	bc.tip = block
	bc.height = block.Header.Height
	return nil
}

func (bc *Blockchain) checkExtendsTip(block *Block) error {
	if bc.tip == nil {
		return nil
	}
	if block.Header.Height != bc.height+1 {
		return fmt.Errorf("block height %d does not follow tip %d", block.Header.Height, bc.height)
	}
	if block.Header.PrevHash != bc.tip.Hash {
		return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, bc.tip.Hash)
	}
	return nil
}

// GetBlock looks a block up by its header hash.
func (bc *Blockchain) GetBlock(hash string) (*Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.store.GetBlock(hash)
}

// GetBlockByHeight looks a block up through the height index.
func (bc *Blockchain) GetBlockByHeight(height int64) (*Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.store.GetBlockByHeight(height)
}

// Tip returns the newest accepted block, nil for a fresh chain.
func (bc *Blockchain) Tip() *Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}

// Height returns the tip height, 0 for a fresh chain.
func (bc *Blockchain) Height() int64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.height
}
