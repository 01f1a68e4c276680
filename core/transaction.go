package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/opaline-labs/mintchain/crypto"
)

// TxType identifies the contract endpoint a transaction invokes.
type TxType string

const (
	TxTransfer TxType = "transfer"

	// Collection minter endpoints.
	TxMint          TxType = "mint"
	TxGiveaway      TxType = "giveaway"
	TxIssueToken    TxType = "issue_token"
	TxSetLocalRoles TxType = "set_local_roles"
	TxPauseMinting  TxType = "pause_minting"
	TxStartMinting  TxType = "start_minting"
	TxSetDrop       TxType = "set_drop"
	TxUnsetDrop     TxType = "unset_drop"
	TxSetPrice      TxType = "set_price"
	TxClaimFunds    TxType = "claim_funds"
	TxShuffle       TxType = "shuffle"

	// TxResolveAsync is injected by the sealer to resolve a queued async
	// system call. It is never accepted from the mempool or RPC.
	TxResolveAsync TxType = "resolve_async"
)

// SystemAddress is the From address of sealer-injected transactions.
const SystemAddress = "system"

// Transaction is a single contract call.
// From holds the caller's full hex-encoded ed25519 public key.
// Value is the native-currency payment attached to the call.
// Signature covers all fields except ID and Signature itself.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Value     *big.Int        `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Value     *big.Int        `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Internal reports whether the transaction is a sealer-injected system
// transaction. Internal transactions carry no signature and bypass nonce
// accounting; the mempool and RPC must reject them.
func (tx *Transaction) Internal() bool {
	return tx.Type == TxResolveAsync
}

// AttachedValue returns the payment attached to the call, never nil.
func (tx *Transaction) AttachedValue() *big.Int {
	if tx.Value == nil {
		return new(big.Int)
	}
	return tx.Value
}

// Hash returns a deterministic hash of the transaction (sans ID/Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Value:     tx.Value,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.Internal() {
		return errors.New("internal transaction is not externally verifiable")
	}
	if tx.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("invalid from (must be ed25519 pubkey hex): %w", err)
	}
	return crypto.Verify(pub, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce uint64, value *big.Int, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if value == nil {
		value = new(big.Int)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Value:     value,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// NewSystemTx creates a sealer-injected internal transaction. The ID is set
// from the content hash so a job can only be resolved under one identity.
func NewSystemTx(chainID string, typ TxType, payload any) (*Transaction, error) {
	tx, err := NewTransaction(chainID, typ, SystemAddress, 0, nil, payload)
	if err != nil {
		return nil, err
	}
	tx.ID = tx.Hash()
	return tx, nil
}

// ---- Payload types ----

// TransferPayload moves the attached value to another account.
type TransferPayload struct {
	To string `json:"to"`
}

// MintPayload requests Count units from the public mint endpoint.
// A count below 1 is coerced up to 1.
type MintPayload struct {
	Count uint32 `json:"count"`
}

// GiveawayPayload mints Count units to To free of charge (owner only).
type GiveawayPayload struct {
	To    string `json:"to"`
	Count uint32 `json:"count"`
}

// IssueTokenPayload requests issuance of the collection's token class.
type IssueTokenPayload struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// SetDropPayload opens a drop capped at TokensPerDrop units.
type SetDropPayload struct {
	TokensPerDrop uint32 `json:"tokens_per_drop"`
}

// SetPricePayload updates the selling price.
type SetPricePayload struct {
	Price *big.Int `json:"price"`
}

// ResolveAsyncPayload identifies the queued async job to resolve.
type ResolveAsyncPayload struct {
	JobID string `json:"job_id"`
}
