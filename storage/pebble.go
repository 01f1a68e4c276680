package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/opaline-labs/mintchain/core"
)

// Pebble implements DB using Pebble. Writes are synced immediately: the
// state commit already batches a whole block, so per-write WAL syncs are
// cheap and keep the chain durable without a background sync loop.
type Pebble struct {
	db *pebble.DB
}

// NewPebble opens (or creates) a Pebble database at path.
func NewPebble(path string) (*Pebble, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(32 << 20), // 32 MB cache
		MemTableSize: 16 << 20,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble %q: %w", path, err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Get(key []byte) ([]byte, error) {
	val, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// Copy: the slice is invalid after closer.Close().
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (p *Pebble) Set(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *Pebble) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *Pebble) NewIterator(prefix []byte) Iterator {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return &pebbleIter{err: err}
	}
	return &pebbleIter{iter: iter}
}

func (p *Pebble) NewBatch() Batch {
	return &pebbleBatch{batch: p.db.NewBatch()}
}

func (p *Pebble) Close() error {
	return p.db.Close()
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper
		}
	}
	return nil
}

// pebbleIter adapts pebble.Iterator to the Iterator interface.
type pebbleIter struct {
	iter    *pebble.Iterator
	started bool
	err     error
}

func (it *pebbleIter) Next() bool {
	if it.iter == nil {
		return false
	}
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *pebbleIter) Key() []byte { return it.iter.Key() }

func (it *pebbleIter) Value() []byte {
	val, err := it.iter.ValueAndErr()
	if err != nil {
		it.err = err
		return nil
	}
	return val
}

func (it *pebbleIter) Release() {
	if it.iter != nil {
		_ = it.iter.Close()
	}
}

func (it *pebbleIter) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.iter != nil {
		return it.iter.Error()
	}
	return nil
}

// pebbleBatch implements Batch on a pebble.Batch.
type pebbleBatch struct {
	batch *pebble.Batch
}

func (b *pebbleBatch) Set(key, value []byte) { _ = b.batch.Set(key, value, nil) }
func (b *pebbleBatch) Delete(key []byte)     { _ = b.batch.Delete(key, nil) }
func (b *pebbleBatch) Reset()                { b.batch.Reset() }
func (b *pebbleBatch) Write() error          { return b.batch.Commit(pebble.Sync) }
