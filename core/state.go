package core

import "math/big"

// Account holds a participant's native-currency balance and replay-protection
// nonce. Address is the hex-encoded ed25519 public key, except for the
// contract and system accounts which use reserved string addresses.
type Account struct {
	Address string   `json:"address"`
	Balance *big.Int `json:"balance"`
	Nonce   uint64   `json:"nonce"`
}

// State is the persistent chain state. Contract storage is exposed as named
// single-valued cells and named sets, both keyed by string identifiers that
// are private to the contract instance. Implementations must be snapshot-able
// so the executor can roll back failed calls (all-or-nothing per call).
type State interface {
	// Accounts
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Single-valued cells. GetCell returns ErrNotFound for an absent cell.
	GetCell(name string) ([]byte, error)
	SetCell(name string, value []byte) error
	ClearCell(name string) error

	// Sets of string members. SetInsert reports whether the member was newly
	// added. SetClear removes every member and resets the length to zero.
	SetInsert(name, member string) (bool, error)
	SetHas(name, member string) (bool, error)
	SetLen(name string) (uint32, error)
	SetClear(name string) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	// Always call ComputeRoot() first to obtain the root for the block header.
	Commit() error
}
