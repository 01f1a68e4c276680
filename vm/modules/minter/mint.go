package minter

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/events"
	"github.com/opaline-labs/mintchain/token"
	"github.com/opaline-labs/mintchain/vm"
)

// handleMint sells count units to the caller. Eligibility is checked in a
// fixed order before any state is touched: paused, token issued, create role
// granted, remaining supply, per-address limit, exact payment. The whole
// call either completes or leaves no trace.
func handleMint(ctx *vm.Context, payload json.RawMessage) error {
	var p core.MintPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if paused, err := getBool(ctx.State, cellPaused); err != nil {
		return err
	} else if paused {
		return ErrMintingPaused
	}
	classID, err := tokenID(ctx.State)
	if err != nil {
		return err
	}
	if ok, err := token.HasRole(ctx.State, classID, ContractAddress, token.RoleCreateUnit); err != nil {
		return err
	} else if !ok {
		return ErrRoleMissing
	}

	count := p.Count
	if count < 1 {
		count = 1
	}

	left, err := tokensLeft(ctx.State)
	if err != nil {
		return err
	}
	if count > left {
		return ErrSupplyExhausted
	}

	limit, err := getUint32(ctx.State, cellTokensLimitPerAddr)
	if err != nil {
		return err
	}
	mintedSoFar, err := getUint32(ctx.State, cellMintedPerAddr+ctx.Tx.From)
	if err != nil {
		return err
	}
	if mintedSoFar+count > limit {
		return ErrPerAddressLimitExceeded
	}

	price, err := getBig(ctx.State, cellSellingPrice)
	if err != nil {
		return err
	}
	required := new(big.Int).Mul(price, big.NewInt(int64(count)))
	payment := ctx.Tx.AttachedValue()
	if payment.Cmp(required) != 0 {
		return ErrInvalidPayment
	}

	if err := vm.Transfer(ctx.State, ctx.Tx.From, ContractAddress, payment); err != nil {
		return err
	}
	if err := mintUnits(ctx, classID, ctx.Tx.From, ctx.Tx.From, count); err != nil {
		return err
	}
	// Sale proceeds go straight to the owner.
	owner, err := getStr(ctx.State, cellOwner)
	if err != nil {
		return err
	}
	if err := vm.Transfer(ctx.State, ContractAddress, owner, payment); err != nil {
		return err
	}
	return autoPauseIfExhausted(ctx)
}

// handleGiveaway mints count units to a chosen receiver for free. Owner
// only. The units still count against supply and against the owner's own
// per-address tally, though the limit itself is not enforced here.
func handleGiveaway(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := requireNotPayable(ctx); err != nil {
		return err
	}
	var p core.GiveawayPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if p.To == "" {
		return fmt.Errorf("giveaway receiver required")
	}

	if paused, err := getBool(ctx.State, cellPaused); err != nil {
		return err
	} else if paused {
		return ErrMintingPaused
	}
	classID, err := tokenID(ctx.State)
	if err != nil {
		return err
	}
	if ok, err := token.HasRole(ctx.State, classID, ContractAddress, token.RoleCreateUnit); err != nil {
		return err
	} else if !ok {
		return ErrRoleMissing
	}

	count := p.Count
	if count < 1 {
		count = 1
	}
	left, err := tokensLeft(ctx.State)
	if err != nil {
		return err
	}
	if count > left {
		return ErrSupplyExhausted
	}

	if err := mintUnits(ctx, classID, ctx.Tx.From, p.To, count); err != nil {
		return err
	}
	return autoPauseIfExhausted(ctx)
}

// mintUnits allocates count sequential indexes, creates one unit per index
// with its content-addressed URIs and attributes, transfers each unit to the
// receiver, and bumps the counter address's per-address tally.
func mintUnits(ctx *vm.Context, classID, counterAddr, receiver string, count uint32) error {
	imageCid, err := getStr(ctx.State, cellImageBaseCid)
	if err != nil {
		return err
	}
	metadataCid, err := getStr(ctx.State, cellMetadataBaseCid)
	if err != nil {
		return err
	}
	ext, err := getStr(ctx.State, cellFileExtension)
	if err != nil {
		return err
	}
	tags, err := getStr(ctx.State, cellTags)
	if err != nil {
		return err
	}
	name, err := getStr(ctx.State, cellNftTokenName)
	if err != nil {
		return err
	}
	royalties, err := getUint32(ctx.State, cellRoyalties)
	if err != nil {
		return err
	}

	for i := uint32(0); i < count; i++ {
		idx, err := allocateNext(ctx.State)
		if err != nil {
			return err
		}
		attrs := buildAttributes(tags, metadataCid, idx)
		uris := buildURIs(imageCid, ext, idx)
		nonce, err := token.CreateUnit(ctx.State, classID, ContractAddress, name, royalties, attributesHash(attrs), attrs, uris)
		if err != nil {
			return err
		}
		if err := token.TransferUnit(ctx.State, classID, nonce, ContractAddress, receiver); err != nil {
			return err
		}
		if ctx.Emitter != nil {
			ctx.Emitter.Emit(events.Event{
				Type:        events.EventUnitMinted,
				TxID:        ctx.Tx.ID,
				BlockHeight: ctx.Block.Header.Height,
				Data: map[string]any{
					"class_id": classID,
					"nonce":    nonce,
					"index":    idx,
					"owner":    receiver,
				},
			})
		}
	}

	tally, err := getUint32(ctx.State, cellMintedPerAddr+counterAddr)
	if err != nil {
		return err
	}
	return setUint32(ctx.State, cellMintedPerAddr+counterAddr, tally+count)
}
