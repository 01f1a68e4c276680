// Package sealer produces blocks. A single authority collects pending
// transactions, executes them against the state, signs the resulting block
// and commits it. Async system calls queued in earlier blocks are resolved
// first in each new block via injected internal transactions.
package sealer

import (
	"fmt"
	"log"
	"time"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/crypto"
	"github.com/opaline-labs/mintchain/events"
	"github.com/opaline-labs/mintchain/vm"
)

// Config wires a Sealer.
type Config struct {
	ChainID  string
	PrivKey  crypto.PrivateKey
	Chain    *core.Blockchain
	Mempool  *core.Mempool
	State    core.State
	Executor *vm.Executor
	Emitter  *events.Emitter
	Interval time.Duration
	MaxTxs   int
}

// Sealer runs the block-production loop.
type Sealer struct {
	cfg     Config
	address string
	stop    chan struct{}
	done    chan struct{}
}

// New creates a Sealer. The sealer address is derived from the private key.
func New(cfg Config) *Sealer {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxTxs <= 0 {
		cfg.MaxTxs = 500
	}
	return &Sealer{
		cfg:     cfg,
		address: cfg.PrivKey.Public().Hex(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the sealing loop in a goroutine.
func (s *Sealer) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if _, err := s.SealBlock(); err != nil {
					log.Printf("[sealer] seal: %v", err)
				}
			}
		}
	}()
}

// Stop halts the sealing loop and waits for it to finish.
func (s *Sealer) Stop() {
	close(s.stop)
	<-s.done
}

// SealBlock assembles and commits one block. Returns (nil, nil) when there
// is nothing to seal. Transactions that fail execution are dropped from the
// mempool and excluded from the block; their state effects are already
// rolled back by the executor.
func (s *Sealer) SealBlock() (*core.Block, error) {
	internal, err := s.resolutionTxs()
	if err != nil {
		return nil, fmt.Errorf("collect async resolutions: %w", err)
	}
	pending := s.cfg.Mempool.Pending(s.cfg.MaxTxs)
	if len(internal) == 0 && len(pending) == 0 {
		return nil, nil
	}

	tip := s.cfg.Chain.Tip()
	if tip == nil {
		return nil, fmt.Errorf("no genesis block")
	}
	block := core.NewBlock(tip.Header.Height+1, tip.Hash, s.address, nil)

	var included []*core.Transaction
	var processed []string
	for _, tx := range append(internal, pending...) {
		if err := s.cfg.Executor.ExecuteTx(block, tx); err != nil {
			log.Printf("[sealer] drop tx %s (%s): %v", tx.ID, tx.Type, err)
		} else {
			included = append(included, tx)
		}
		if !tx.Internal() {
			processed = append(processed, tx.ID)
		}
	}

	if len(included) == 0 {
		s.cfg.Mempool.Remove(processed)
		return nil, nil
	}

	block.Transactions = included
	block.Header.TxRoot = core.ComputeTxRoot(included)
	block.Header.StateRoot = s.cfg.State.ComputeRoot()
	block.Sign(s.cfg.PrivKey)

	if err := s.cfg.Chain.AddBlock(block); err != nil {
		return nil, fmt.Errorf("add block: %w", err)
	}
	if err := s.cfg.State.Commit(); err != nil {
		return nil, fmt.Errorf("commit state: %w", err)
	}
	s.cfg.Mempool.Remove(processed)

	if s.cfg.Emitter != nil {
		s.cfg.Emitter.Emit(events.Event{
			Type:        events.EventBlockCommit,
			BlockHeight: block.Header.Height,
			Data:        map[string]any{"hash": block.Hash, "txs": len(included)},
		})
	}
	log.Printf("[sealer] sealed block %d with %d txs (%s)", block.Header.Height, len(included), block.Hash[:12])
	return block, nil
}

// resolutionTxs builds one internal transaction per async job queued in
// previously committed blocks.
func (s *Sealer) resolutionTxs() ([]*core.Transaction, error) {
	ids, err := vm.PendingJobIDs(s.cfg.State)
	if err != nil {
		return nil, err
	}
	txs := make([]*core.Transaction, 0, len(ids))
	for _, id := range ids {
		tx, err := core.NewSystemTx(s.cfg.ChainID, core.TxResolveAsync, core.ResolveAsyncPayload{JobID: id})
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
