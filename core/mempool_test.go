package core

import (
	"testing"
	"time"
)

func TestMempoolAddAndPending(t *testing.T) {
	pool := NewMempool()
	tx1, _ := signedTx(t, TxMint, MintPayload{Count: 1})
	tx2, _ := signedTx(t, TxTransfer, TransferPayload{To: "someone"})

	if err := pool.Add(tx1); err != nil {
		t.Fatalf("add tx1: %v", err)
	}
	if err := pool.Add(tx2); err != nil {
		t.Fatalf("add tx2: %v", err)
	}
	if err := pool.Add(tx1); err == nil {
		t.Error("expected duplicate rejection")
	}

	pending := pool.Pending(10)
	if len(pending) != 2 || pending[0].ID != tx1.ID || pending[1].ID != tx2.ID {
		t.Errorf("pending order wrong: %d txs", len(pending))
	}

	pool.Remove([]string{tx1.ID})
	if pool.Size() != 1 {
		t.Errorf("size = %d after remove, want 1", pool.Size())
	}
}

func TestMempoolRejectsInternal(t *testing.T) {
	pool := NewMempool()
	tx, err := NewSystemTx("test-chain", TxResolveAsync, ResolveAsyncPayload{JobID: "j1"})
	if err != nil {
		t.Fatalf("new system tx: %v", err)
	}
	if err := pool.Add(tx); err == nil {
		t.Error("mempool must reject internal transaction types")
	}
}

func TestMempoolRejectsStaleTimestamp(t *testing.T) {
	pool := NewMempool()
	tx, priv := signedTx(t, TxMint, MintPayload{Count: 1})
	tx.Timestamp = time.Now().Add(-2 * time.Hour).UnixNano()
	tx.Sign(priv)
	if err := pool.Add(tx); err == nil {
		t.Error("expected expiry rejection")
	}
}
