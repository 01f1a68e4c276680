package core

import (
	"math/big"
	"testing"

	"github.com/opaline-labs/mintchain/crypto"
)

func signedTx(t *testing.T, typ TxType, payload any) (*Transaction, crypto.PrivateKey) {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx, err := NewTransaction("test-chain", typ, pub.Hex(), 0, big.NewInt(100), payload)
	if err != nil {
		t.Fatalf("new tx: %v", err)
	}
	tx.Sign(priv)
	return tx, priv
}

func TestTransactionSignVerify(t *testing.T) {
	tx, _ := signedTx(t, TxMint, MintPayload{Count: 2})
	if err := tx.Verify(); err != nil {
		t.Errorf("verify: %v", err)
	}
	if tx.ID != tx.Hash() {
		t.Error("ID must equal content hash after signing")
	}
}

func TestTransactionTamperDetected(t *testing.T) {
	tx, _ := signedTx(t, TxMint, MintPayload{Count: 1})
	tx.Value = big.NewInt(999)
	if err := tx.Verify(); err == nil {
		t.Error("expected verification failure after tampering with value")
	}
}

func TestInternalTransaction(t *testing.T) {
	tx, err := NewSystemTx("test-chain", TxResolveAsync, ResolveAsyncPayload{JobID: "j1"})
	if err != nil {
		t.Fatalf("new system tx: %v", err)
	}
	if !tx.Internal() {
		t.Error("resolve_async must be internal")
	}
	if tx.From != SystemAddress {
		t.Errorf("From = %q, want %q", tx.From, SystemAddress)
	}
	if err := tx.Verify(); err == nil {
		t.Error("internal tx must not be externally verifiable")
	}
}

func TestAttachedValueNeverNil(t *testing.T) {
	tx := &Transaction{}
	if v := tx.AttachedValue(); v == nil || v.Sign() != 0 {
		t.Errorf("AttachedValue() = %v, want zero", v)
	}
}
