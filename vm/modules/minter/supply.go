package minter

import (
	"strconv"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/events"
	"github.com/opaline-labs/mintchain/vm"
)

// TotalTokensLeft returns how many units of the collection can still be
// minted, ignoring any active drop. Saturates at zero.
func TotalTokensLeft(st core.State) (uint32, error) {
	total, err := getUint32(st, cellAmountOfTokens)
	if err != nil {
		return 0, err
	}
	minted, err := st.SetLen(setMintedIndexes)
	if err != nil {
		return 0, err
	}
	if minted >= total {
		return 0, nil
	}
	return total - minted, nil
}

// DropTokensLeft returns how many units the active drop can still mint.
// With no active drop it returns zero. Saturates at zero.
func DropTokensLeft(st core.State) (uint32, error) {
	active, err := cellExists(st, cellTokensPerDrop)
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, nil
	}
	dropCap, err := getUint32(st, cellTokensPerDrop)
	if err != nil {
		return 0, err
	}
	minted, err := st.SetLen(setMintedIndexesByDrop)
	if err != nil {
		return 0, err
	}
	if minted >= dropCap {
		return 0, nil
	}
	return dropCap - minted, nil
}

// tokensLeft returns the effective remaining supply: the drop cap when a
// drop is active, the global cap otherwise.
func tokensLeft(st core.State) (uint32, error) {
	active, err := cellExists(st, cellTokensPerDrop)
	if err != nil {
		return 0, err
	}
	if active {
		return DropTokensLeft(st)
	}
	return TotalTokensLeft(st)
}

// allocateNext hands out the next sequential index and records it in the
// global minted set, and in the drop set when a drop is active.
func allocateNext(st core.State) (uint32, error) {
	idx, err := getUint32(st, cellNextIndexToMint)
	if err != nil {
		return 0, err
	}
	if idx == 0 {
		idx = 1
	}
	member := strconv.FormatUint(uint64(idx), 10)
	if _, err := st.SetInsert(setMintedIndexes, member); err != nil {
		return 0, err
	}
	active, err := cellExists(st, cellTokensPerDrop)
	if err != nil {
		return 0, err
	}
	if active {
		if _, err := st.SetInsert(setMintedIndexesByDrop, member); err != nil {
			return 0, err
		}
	}
	if err := setUint32(st, cellNextIndexToMint, idx+1); err != nil {
		return 0, err
	}
	return idx, nil
}

// autoPauseIfExhausted pauses minting when the effective remaining supply
// reaches zero. Called after a successful mint loop so the pause survives
// the call (a pause written inside a failing call would be rolled back).
func autoPauseIfExhausted(ctx *vm.Context) error {
	left, err := tokensLeft(ctx.State)
	if err != nil {
		return err
	}
	if left > 0 {
		return nil
	}
	paused, err := getBool(ctx.State, cellPaused)
	if err != nil {
		return err
	}
	if paused {
		return nil
	}
	if err := setBool(ctx.State, cellPaused, true); err != nil {
		return err
	}
	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventAutoPaused,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data:        map[string]any{"reason": "supply exhausted"},
		})
	}
	return nil
}
