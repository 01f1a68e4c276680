package minter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/vm"
)

// handlePauseMinting stops public minting and giveaways.
func handlePauseMinting(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := requireNotPayable(ctx); err != nil {
		return err
	}
	return setBool(ctx.State, cellPaused, true)
}

// handleStartMinting resumes minting. The owner can also use it to reopen
// sales after an automatic pause, for example once a new drop is set.
func handleStartMinting(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := requireNotPayable(ctx); err != nil {
		return err
	}
	return setBool(ctx.State, cellPaused, false)
}

// handleSetDrop opens a drop: a window in which at most TokensPerDrop units
// can be minted. Setting a drop resets the drop tally, so consecutive drops
// each get a fresh budget.
func handleSetDrop(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := requireNotPayable(ctx); err != nil {
		return err
	}
	var p core.SetDropPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if p.TokensPerDrop < 1 {
		return errors.New("tokens per drop must be at least 1")
	}
	total, err := TotalTokensLeft(ctx.State)
	if err != nil {
		return err
	}
	if p.TokensPerDrop > total {
		return fmt.Errorf("tokens per drop %d exceeds remaining supply %d", p.TokensPerDrop, total)
	}
	if err := ctx.State.SetClear(setMintedIndexesByDrop); err != nil {
		return err
	}
	return setUint32(ctx.State, cellTokensPerDrop, p.TokensPerDrop)
}

// handleUnsetDrop closes the active drop, returning supply accounting to the
// global cap. Idempotent.
func handleUnsetDrop(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := requireNotPayable(ctx); err != nil {
		return err
	}
	if err := ctx.State.SetClear(setMintedIndexesByDrop); err != nil {
		return err
	}
	return ctx.State.ClearCell(cellTokensPerDrop)
}

// handleSetPrice updates the selling price for future mints.
func handleSetPrice(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := requireNotPayable(ctx); err != nil {
		return err
	}
	var p core.SetPricePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if p.Price == nil || p.Price.Sign() < 0 {
		return errors.New("price must be zero or positive")
	}
	return setBig(ctx.State, cellSellingPrice, p.Price)
}

// handleClaimFunds sweeps the contract account's balance to the owner.
// Covers royalty payouts and anything sent to the contract outside a sale.
func handleClaimFunds(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := requireNotPayable(ctx); err != nil {
		return err
	}
	acc, err := ctx.State.GetAccount(ContractAddress)
	if err != nil {
		return err
	}
	return vm.Transfer(ctx.State, ContractAddress, ctx.Tx.From, acc.Balance)
}

// handleShuffle is kept for interface compatibility with older collection
// tooling. Indexes are allocated sequentially, so there is no randomized
// pick position to advance; any caller may invoke it and it does nothing.
func handleShuffle(ctx *vm.Context, payload json.RawMessage) error {
	return requireNotPayable(ctx)
}
