package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/opaline-labs/mintchain/crypto"
)

const (
	keystoreVersion = 1
	pbkdf2Iters     = 600_000
	saltSize        = 16
)

// keystoreFile is the on-disk format: the private key encrypted with
// AES-256-GCM under a PBKDF2-derived key.
type keystoreFile struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Iterations int    `json:"iterations"`
}

// SaveKeystore encrypts the wallet's private key with passphrase and writes
// it to path with owner-only permissions.
func (w *Wallet) SaveKeystore(path, passphrase string) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iters, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	ciphertext := gcm.Seal(nil, nonce, w.priv, nil)

	data, err := json.MarshalIndent(keystoreFile{
		Version:    keystoreVersion,
		Address:    w.Address(),
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ciphertext),
		Iterations: pbkdf2Iters,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadKeystore decrypts a keystore file and restores the wallet.
func LoadKeystore(path, passphrase string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("corrupt keystore: %w", err)
	}
	if ks.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", ks.Version)
	}
	salt, err := hex.DecodeString(ks.Salt)
	if err != nil {
		return nil, fmt.Errorf("corrupt keystore salt: %w", err)
	}
	nonce, err := hex.DecodeString(ks.Nonce)
	if err != nil {
		return nil, fmt.Errorf("corrupt keystore nonce: %w", err)
	}
	ciphertext, err := hex.DecodeString(ks.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("corrupt keystore ciphertext: %w", err)
	}
	iters := ks.Iterations
	if iters <= 0 {
		iters = pbkdf2Iters
	}

	key := pbkdf2.Key([]byte(passphrase), salt, iters, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	privBytes, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("wrong passphrase or corrupt keystore")
	}

	w := FromPrivateKey(crypto.PrivateKey(privBytes))
	if ks.Address != "" && ks.Address != w.Address() {
		return nil, errors.New("keystore address mismatch")
	}
	return w, nil
}
