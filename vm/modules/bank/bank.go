// Package bank handles plain native-currency transfers between accounts.
package bank

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/events"
	"github.com/opaline-labs/mintchain/vm"
)

func init() {
	vm.Register(core.TxTransfer, handleTransfer)
}

// handleTransfer moves the attached value from the caller to the payload
// recipient.
func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if p.To == "" {
		return errors.New("recipient required")
	}
	amount := ctx.Tx.AttachedValue()
	if amount.Sign() <= 0 {
		return errors.New("transfer amount must be positive")
	}
	if err := vm.Transfer(ctx.State, ctx.Tx.From, p.To, amount); err != nil {
		return err
	}
	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventTransfer,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data:        map[string]any{"from": ctx.Tx.From, "to": p.To, "amount": amount.String()},
		})
	}
	return nil
}
