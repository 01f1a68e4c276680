package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/opaline-labs/mintchain/crypto"
)

// BlockHeader is the signed part of a block. StateRoot commits to the state
// after the block's transactions executed, TxRoot to their identity and order.
type BlockHeader struct {
	Height    int64  `json:"height"`
	PrevHash  string `json:"prev_hash"`
	StateRoot string `json:"state_root"`
	TxRoot    string `json:"tx_root"`
	Timestamp int64  `json:"timestamp"`
	Sealer    string `json:"sealer"` // sealer's pubkey hex
}

// Block carries the transactions the sealer executed, the header hash, and
// the sealer's signature over that hash.
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
	Hash         string         `json:"hash"`
	Signature    string         `json:"signature"`
}

// NewBlock assembles an unsigned block over txs, stamped with the current
// time. StateRoot is filled in by the sealer once execution is done.
func NewBlock(height int64, prevHash, sealer string, txs []*Transaction) *Block {
	return &Block{
		Header: BlockHeader{
			Height:    height,
			PrevHash:  prevHash,
			TxRoot:    ComputeTxRoot(txs),
			Timestamp: time.Now().UnixNano(),
			Sealer:    sealer,
		},
		Transactions: txs,
	}
}

// ComputeHash hashes the JSON-serialised header. Header fields are all
// marshalable, so the marshal error is discarded.
func (b *Block) ComputeHash() string {
	data, _ := json.Marshal(b.Header)
	return crypto.Hash(data)
}

// Sign fixes the header hash and signs it with the sealer key.
func (b *Block) Sign(priv crypto.PrivateKey) {
	b.Hash = b.ComputeHash()
	b.Signature = crypto.Sign(priv, []byte(b.Hash))
}

// Verify checks the sealer's signature over the header hash.
func (b *Block) Verify(pub crypto.PublicKey) error {
	return crypto.Verify(pub, []byte(b.Hash), b.Signature)
}

// ComputeTxRoot commits to the transaction IDs in block order. An empty
// block gets the hash of the empty input as its sentinel root.
func ComputeTxRoot(txs []*Transaction) string {
	if len(txs) == 0 {
		return crypto.Hash(nil)
	}
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return crypto.Hash([]byte(strings.Join(ids, "\n")))
}
