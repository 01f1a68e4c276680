package storage

import (
	"errors"
	"math/big"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/opaline-labs/mintchain/core"
)

// testDB is a minimal in-memory DB for exercising StateDB. The shared
// test double in internal/testutil cannot be used here without an import
// cycle.
type testDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newTestDB() *testDB {
	return &testDB{data: make(map[string][]byte)}
}

func (d *testDB) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.data[string(key)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (d *testDB) Set(key, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (d *testDB) Delete(key []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, string(key))
	return nil
}

func (d *testDB) NewIterator(prefix []byte) Iterator {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var keys []string
	for k := range d.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	it := &testIter{pos: -1}
	for _, k := range keys {
		it.keys = append(it.keys, []byte(k))
		it.vals = append(it.vals, d.data[k])
	}
	return it
}

func (d *testDB) NewBatch() Batch { return &testBatch{db: d} }
func (d *testDB) Close() error    { return nil }

type testIter struct {
	keys [][]byte
	vals [][]byte
	pos  int
}

func (it *testIter) Next() bool    { it.pos++; return it.pos < len(it.keys) }
func (it *testIter) Key() []byte   { return it.keys[it.pos] }
func (it *testIter) Value() []byte { return it.vals[it.pos] }
func (it *testIter) Release()      {}
func (it *testIter) Error() error  { return nil }

type testBatch struct {
	db   *testDB
	sets map[string][]byte
	dels []string
}

func (b *testBatch) Set(key, value []byte) {
	if b.sets == nil {
		b.sets = make(map[string][]byte)
	}
	b.sets[string(key)] = append([]byte(nil), value...)
}
func (b *testBatch) Delete(key []byte) { b.dels = append(b.dels, string(key)) }
func (b *testBatch) Reset()            { b.sets = nil; b.dels = nil }
func (b *testBatch) Write() error {
	for k, v := range b.sets {
		_ = b.db.Set([]byte(k), v)
	}
	for _, k := range b.dels {
		_ = b.db.Delete([]byte(k))
	}
	return nil
}

func TestStateDBAccounts(t *testing.T) {
	st := NewStateDB(newTestDB())

	acc, err := st.GetAccount("alice")
	if err != nil {
		t.Fatalf("get fresh account: %v", err)
	}
	if acc.Balance.Sign() != 0 || acc.Nonce != 0 {
		t.Error("fresh account must be zero-valued")
	}

	acc.Balance = big.NewInt(500)
	acc.Nonce = 3
	if err := st.SetAccount(acc); err != nil {
		t.Fatalf("set account: %v", err)
	}
	got, _ := st.GetAccount("alice")
	if got.Balance.Cmp(big.NewInt(500)) != 0 || got.Nonce != 3 {
		t.Errorf("got balance=%s nonce=%d", got.Balance, got.Nonce)
	}
}

func TestStateDBCells(t *testing.T) {
	st := NewStateDB(newTestDB())

	if _, err := st.GetCell("missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.SetCell("greeting", []byte("hi")); err != nil {
		t.Fatal(err)
	}
	v, err := st.GetCell("greeting")
	if err != nil || string(v) != "hi" {
		t.Errorf("got %q, %v", v, err)
	}
	if err := st.ClearCell("greeting"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetCell("greeting"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cleared cell still readable: %v", err)
	}
}

func TestStateDBSets(t *testing.T) {
	st := NewStateDB(newTestDB())

	added, err := st.SetInsert("minted", "1")
	if err != nil || !added {
		t.Fatalf("first insert: added=%v err=%v", added, err)
	}
	added, _ = st.SetInsert("minted", "1")
	if added {
		t.Error("duplicate insert must report false")
	}
	_, _ = st.SetInsert("minted", "2")

	if n, _ := st.SetLen("minted"); n != 2 {
		t.Errorf("len = %d, want 2", n)
	}
	if has, _ := st.SetHas("minted", "2"); !has {
		t.Error("member 2 missing")
	}
	if has, _ := st.SetHas("minted", "9"); has {
		t.Error("member 9 must not exist")
	}
}

func TestStateDBSetClearSpansCommittedAndBuffered(t *testing.T) {
	st := NewStateDB(newTestDB())

	_, _ = st.SetInsert("drop", "1")
	if err := st.Commit(); err != nil {
		t.Fatal(err)
	}
	_, _ = st.SetInsert("drop", "2") // buffered only

	if err := st.SetClear("drop"); err != nil {
		t.Fatal(err)
	}
	if n, _ := st.SetLen("drop"); n != 0 {
		t.Errorf("len after clear = %d", n)
	}
	for _, m := range []string{"1", "2"} {
		if has, _ := st.SetHas("drop", m); has {
			t.Errorf("member %s survived clear", m)
		}
	}

	// A fresh insert after clear starts counting from zero again.
	if added, _ := st.SetInsert("drop", "3"); !added {
		t.Error("insert after clear must succeed")
	}
	if n, _ := st.SetLen("drop"); n != 1 {
		t.Errorf("len = %d, want 1", n)
	}
}

func TestStateDBSnapshotRollback(t *testing.T) {
	st := NewStateDB(newTestDB())
	_ = st.SetCell("a", []byte("1"))

	id, err := st.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	_ = st.SetCell("a", []byte("2"))
	_ = st.SetCell("b", []byte("x"))
	_, _ = st.SetInsert("s", "m")

	if err := st.RevertToSnapshot(id); err != nil {
		t.Fatal(err)
	}
	if v, _ := st.GetCell("a"); string(v) != "1" {
		t.Errorf("a = %q after rollback", v)
	}
	if _, err := st.GetCell("b"); !errors.Is(err, core.ErrNotFound) {
		t.Error("b must be gone after rollback")
	}
	if n, _ := st.SetLen("s"); n != 0 {
		t.Error("set insert must be rolled back")
	}
	if err := st.RevertToSnapshot(99); err == nil {
		t.Error("invalid snapshot id must error")
	}
}

func TestStateDBComputeRootDeterministic(t *testing.T) {
	db := newTestDB()
	st := NewStateDB(db)
	_ = st.SetCell("k", []byte("v"))
	_ = st.SetAccount(&core.Account{Address: "a", Balance: big.NewInt(7)})

	r1 := st.ComputeRoot()
	r2 := st.ComputeRoot()
	if r1 != r2 {
		t.Error("root not stable across calls")
	}

	// Root survives commit: buffer contents equal persisted contents.
	if err := st.Commit(); err != nil {
		t.Fatal(err)
	}
	if st.ComputeRoot() != r1 {
		t.Error("root changed across commit")
	}

	_ = st.SetCell("k", []byte("w"))
	if st.ComputeRoot() == r1 {
		t.Error("root must change when state changes")
	}
}

func TestStateDBCommitPersists(t *testing.T) {
	db := newTestDB()
	st := NewStateDB(db)
	_ = st.SetCell("k", []byte("v"))
	_, _ = st.SetInsert("s", "1")
	if err := st.Commit(); err != nil {
		t.Fatal(err)
	}

	// Fresh StateDB over the same backend sees the committed data.
	st2 := NewStateDB(db)
	if v, _ := st2.GetCell("k"); string(v) != "v" {
		t.Errorf("k = %q after reopen", v)
	}
	if n, _ := st2.SetLen("s"); n != 1 {
		t.Errorf("set len = %d after reopen", n)
	}
}
