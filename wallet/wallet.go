// Package wallet manages an ed25519 identity and builds signed transactions
// for the collection endpoints. Keys at rest are sealed in an encrypted
// keystore file.
package wallet

import (
	"math/big"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/crypto"
)

// Wallet holds a key pair and signs transactions with it.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New generates a fresh wallet.
func New() (*Wallet, error) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: pub}, nil
}

// FromPrivateKey restores a wallet from an existing private key.
func FromPrivateKey(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Address returns the wallet's account address (full pubkey hex).
func (w *Wallet) Address() string {
	return w.pub.Hex()
}

// PrivateKey exposes the signing key for components that sign directly,
// such as the block sealer.
func (w *Wallet) PrivateKey() crypto.PrivateKey {
	return w.priv
}

// SignTx builds and signs a transaction for any endpoint.
func (w *Wallet) SignTx(chainID string, typ core.TxType, nonce uint64, value *big.Int, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, typ, w.Address(), nonce, value, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// Transfer builds a signed native-currency transfer.
func (w *Wallet) Transfer(chainID string, nonce uint64, to string, amount *big.Int) (*core.Transaction, error) {
	return w.SignTx(chainID, core.TxTransfer, nonce, amount, core.TransferPayload{To: to})
}

// Mint builds a signed mint call paying the exact required amount.
func (w *Wallet) Mint(chainID string, nonce uint64, count uint32, payment *big.Int) (*core.Transaction, error) {
	return w.SignTx(chainID, core.TxMint, nonce, payment, core.MintPayload{Count: count})
}

// Giveaway builds a signed giveaway call (collection owner only).
func (w *Wallet) Giveaway(chainID string, nonce uint64, to string, count uint32) (*core.Transaction, error) {
	return w.SignTx(chainID, core.TxGiveaway, nonce, nil, core.GiveawayPayload{To: to, Count: count})
}

// IssueToken builds a signed issuance call carrying the issue cost.
func (w *Wallet) IssueToken(chainID string, nonce uint64, name, ticker string, cost *big.Int) (*core.Transaction, error) {
	return w.SignTx(chainID, core.TxIssueToken, nonce, cost, core.IssueTokenPayload{Name: name, Ticker: ticker})
}
