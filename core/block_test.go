package core

import (
	"testing"

	"github.com/opaline-labs/mintchain/crypto"
)

func TestBlockSignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	tx, _ := signedTx(t, TxMint, MintPayload{Count: 1})
	block := NewBlock(1, "prev", pub.Hex(), []*Transaction{tx})
	block.Header.StateRoot = "root"
	block.Sign(priv)

	if block.Hash != block.ComputeHash() {
		t.Error("hash mismatch after signing")
	}
	if err := block.Verify(pub); err != nil {
		t.Errorf("verify: %v", err)
	}

	block.Header.StateRoot = "tampered"
	if block.Hash == block.ComputeHash() {
		t.Error("hash must change when header changes")
	}
}

func TestComputeTxRoot(t *testing.T) {
	tx1, _ := signedTx(t, TxMint, MintPayload{Count: 1})
	tx2, _ := signedTx(t, TxMint, MintPayload{Count: 2})

	r1 := ComputeTxRoot([]*Transaction{tx1, tx2})
	r2 := ComputeTxRoot([]*Transaction{tx1, tx2})
	if r1 != r2 {
		t.Error("tx root not deterministic")
	}
	if r1 == ComputeTxRoot([]*Transaction{tx2, tx1}) {
		t.Error("tx root must depend on order")
	}
	if ComputeTxRoot(nil) == "" {
		t.Error("empty tx root must be defined")
	}
}
