package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	maxMempoolSize = 10_000
	maxTxAge       = int64(time.Hour)       // stale cutoff
	maxTxFuture    = int64(5 * time.Minute) // clock-skew allowance
)

// Mempool holds verified transactions waiting to be sealed. Iteration order
// is insertion order, so the sealer packs blocks first-come first-served.
type Mempool struct {
	mu  sync.RWMutex
	txs map[string]*Transaction
	ord []string
}

func NewMempool() *Mempool {
	return &Mempool{txs: make(map[string]*Transaction)}
}

// Add admits tx into the pool. Internal (sealer-injected) types never pass:
// accepting one from the outside would let anyone resolve async jobs. The
// signature and the timestamp window are checked before taking the lock.
func (m *Mempool) Add(tx *Transaction) error {
	if tx.Internal() {
		return errors.New("internal transaction type not accepted")
	}
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("invalid tx signature: %w", err)
	}
	if err := checkTimestamp(tx.Timestamp); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) >= maxMempoolSize {
		return errors.New("mempool full")
	}
	if _, dup := m.txs[tx.ID]; dup {
		return errors.New("tx already in pool")
	}
	m.txs[tx.ID] = tx
	m.ord = append(m.ord, tx.ID)
	return nil
}

func checkTimestamp(ts int64) error {
	now := time.Now().UnixNano()
	if now-ts > maxTxAge {
		return errors.New("transaction expired")
	}
	if ts-now > maxTxFuture {
		return errors.New("transaction timestamp too far in the future")
	}
	return nil
}

// Get looks a pending transaction up by ID.
func (m *Mempool) Get(id string) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	return tx, ok
}

// Pending returns up to n transactions in admission order.
func (m *Mempool) Pending(n int) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Transaction, 0, n)
	for _, id := range m.ord {
		if len(out) == n {
			break
		}
		if tx, ok := m.txs[id]; ok {
			out = append(out, tx)
		}
	}
	return out
}

// Remove drops the given IDs, typically after they were sealed into a block.
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := make(map[string]bool, len(ids))
	for _, id := range ids {
		delete(m.txs, id)
		dropped[id] = true
	}
	kept := m.ord[:0]
	for _, id := range m.ord {
		if !dropped[id] {
			kept = append(kept, id)
		}
	}
	m.ord = kept
}

// Size reports how many transactions are waiting.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
