package vm

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/events"
)

// ErrInsufficientBalance is returned when an account cannot cover a transfer.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Context is passed to every Handler and provides access to the chain state,
// the current block, the triggering transaction, and the event emitter.
type Context struct {
	State   core.State
	Block   *core.Block
	Tx      *core.Transaction
	Emitter *events.Emitter
}

// Executor applies calls to the state using the global Handler registry.
// Every call is executed against a snapshot: a failing precondition or
// handler error discards all mutations the call attempted, so state only
// ever reflects fully completed calls.
type Executor struct {
	state   core.State
	emitter *events.Emitter
}

// NewExecutor creates an Executor with the given state and event emitter.
func NewExecutor(state core.State, emitter *events.Emitter) *Executor {
	return &Executor{state: state, emitter: emitter}
}

// ExecuteTx verifies and executes a single call with snapshot/rollback.
// Internal (sealer-injected) transactions skip signature and nonce checks.
func (e *Executor) ExecuteTx(block *core.Block, tx *core.Transaction) error {
	if tx.Internal() {
		if tx.From != core.SystemAddress {
			return fmt.Errorf("internal tx from %q rejected", tx.From)
		}
	} else if err := tx.Verify(); err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if err := e.applyTx(block, tx); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		return err
	}

	if e.emitter != nil {
		e.emitter.Emit(events.Event{
			Type:        events.EventTxExecuted,
			TxID:        tx.ID,
			BlockHeight: block.Header.Height,
			Data:        map[string]any{"type": string(tx.Type), "from": tx.From},
		})
	}
	return nil
}

// applyTx increments the caller nonce, then dispatches to the handler.
// Attached value is not moved here: payable endpoints collect it explicitly
// via Transfer so that a failed payment check leaves the caller untouched.
func (e *Executor) applyTx(block *core.Block, tx *core.Transaction) error {
	if !tx.Internal() {
		acc, err := e.state.GetAccount(tx.From)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		if acc.Nonce != tx.Nonce {
			return fmt.Errorf("invalid nonce: expected %d got %d", acc.Nonce, tx.Nonce)
		}
		if acc.Nonce == math.MaxUint64 {
			return fmt.Errorf("nonce overflow for account %s", tx.From)
		}
		acc.Nonce++
		if err := e.state.SetAccount(acc); err != nil {
			return err
		}
	}

	ctx := &Context{
		State:   e.state,
		Block:   block,
		Tx:      tx,
		Emitter: e.emitter,
	}
	return globalRegistry.Execute(tx.Type, ctx, tx.Payload)
}

// Transfer moves native currency between accounts. A zero amount is a no-op.
func Transfer(st core.State, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return errors.New("negative transfer amount")
	}
	if to == "" {
		return errors.New("transfer recipient required")
	}
	src, err := st.GetAccount(from)
	if err != nil {
		return err
	}
	if src.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, src.Balance, amount)
	}
	src.Balance = new(big.Int).Sub(src.Balance, amount)
	if err := st.SetAccount(src); err != nil {
		return err
	}
	dst, err := st.GetAccount(to)
	if err != nil {
		return err
	}
	dst.Balance = new(big.Int).Add(dst.Balance, amount)
	return st.SetAccount(dst)
}

// Burn removes native currency from an account (consumed system fees).
func Burn(st core.State, from string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	src, err := st.GetAccount(from)
	if err != nil {
		return err
	}
	if src.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, src.Balance, amount)
	}
	src.Balance = new(big.Int).Sub(src.Balance, amount)
	return st.SetAccount(src)
}
