package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// addressLen is the number of digest bytes kept when deriving an account
// address, giving 40 hex characters on the wire.
const addressLen = 20

// PrivateKey is an ed25519 private key.
type PrivateKey []byte

// PublicKey is an ed25519 public key. Its hex form doubles as the sender
// identity on transactions and the sealer identity on block headers.
type PublicKey []byte

// GenerateKeyPair creates a fresh ed25519 key pair from crypto/rand.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// Address derives the account address for the key: the first addressLen
// bytes of SHA-256(pubkey), hex encoded.
func (pub PublicKey) Address() string {
	return hex.EncodeToString(HashBytes(pub)[:addressLen])
}

// Hex encodes the public key as 64 hex characters.
func (pub PublicKey) Hex() string { return hex.EncodeToString(pub) }

// Hex encodes the private key for keystore storage.
func (priv PrivateKey) Hex() string { return hex.EncodeToString(priv) }

// Public returns the public half of the key.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

// PubKeyFromHex parses the hex form produced by PublicKey.Hex.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := decodeKeyHex(s, ed25519.PublicKeySize, "public key")
	if err != nil {
		return nil, err
	}
	return PublicKey(b), nil
}

// PrivKeyFromHex parses the hex form produced by PrivateKey.Hex.
func PrivKeyFromHex(s string) (PrivateKey, error) {
	b, err := decodeKeyHex(s, ed25519.PrivateKeySize, "private key")
	if err != nil {
		return nil, err
	}
	return PrivateKey(b), nil
}

func decodeKeyHex(s string, size int, what string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%s is %d bytes, want %d", what, len(b), size)
	}
	return b, nil
}
