package crypto

import (
	"errors"
	"testing"
)

func TestSignVerify(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sig := Sign(priv, []byte("hello"))
	if err := Verify(pub, []byte("hello"), sig); err != nil {
		t.Errorf("verify: %v", err)
	}
	if err := Verify(pub, []byte("tampered"), sig); !errors.Is(err, ErrBadSignature) {
		t.Errorf("tampered data: got %v, want ErrBadSignature", err)
	}
	if err := Verify(pub, []byte("hello"), "zz"); err == nil {
		t.Error("expected error for malformed signature hex")
	}
	if err := Verify(pub, []byte("hello"), "abcd"); errors.Is(err, ErrBadSignature) || err == nil {
		t.Errorf("short signature must fail before the curve check, got %v", err)
	}
}

func TestAddressDerivation(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := priv.Public().Hex(); got != pub.Hex() {
		t.Errorf("derived pubkey %s != generated %s", got, pub.Hex())
	}
	if len(pub.Address()) != 40 {
		t.Errorf("address length = %d, want 40", len(pub.Address()))
	}
	if len(pub.Hex()) != 64 {
		t.Errorf("pubkey hex length = %d, want 64", len(pub.Hex()))
	}
}

func TestPubKeyFromHex(t *testing.T) {
	_, pub, _ := GenerateKeyPair()
	parsed, err := PubKeyFromHex(pub.Hex())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Hex() != pub.Hex() {
		t.Error("roundtrip mismatch")
	}
	if _, err := PubKeyFromHex("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := PubKeyFromHex("abcd"); err == nil {
		t.Error("expected error for wrong length")
	}
}

func TestHashDeterminism(t *testing.T) {
	if Hash([]byte("a")) != Hash([]byte("a")) {
		t.Error("hash not deterministic")
	}
	if Hash([]byte("a")) == Hash([]byte("b")) {
		t.Error("hash collision on different inputs")
	}
	if len(Hash([]byte("a"))) != 64 {
		t.Error("hash must be 64 hex chars")
	}
}
