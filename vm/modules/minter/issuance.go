package minter

import (
	"encoding/json"
	"fmt"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/token"
	"github.com/opaline-labs/mintchain/vm"
)

// handleIssueToken starts the async issuance of the collection's token
// class. The attached payment (the system issue cost) moves into the async
// escrow account until the resolution either consumes it or hands it back,
// so a claimFunds sweep while the job is pending cannot strand the deposit.
func handleIssueToken(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	var p core.IssueTokenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if id, err := getStr(ctx.State, cellNftTokenId); err != nil {
		return err
	} else if id != "" {
		return ErrAlreadyIssued
	}
	if pending, err := getBool(ctx.State, cellIssuePending); err != nil {
		return err
	} else if pending {
		return ErrIssueInProgress
	}

	payment := ctx.Tx.AttachedValue()
	if err := vm.Transfer(ctx.State, ctx.Tx.From, vm.EscrowAddress, payment); err != nil {
		return err
	}

	params, err := json.Marshal(token.IssueParams{
		Name:   p.Name,
		Ticker: p.Ticker,
		Owner:  ContractAddress,
		Props:  token.Properties{CanAddSpecialRoles: true},
	})
	if err != nil {
		return err
	}
	if _, err := vm.Enqueue(ctx, &vm.Job{
		Kind:     vm.JobIssueClass,
		Caller:   ctx.Tx.From,
		Holder:   vm.EscrowAddress,
		Payment:  payment,
		Callback: issueCallbackName,
		Params:   params,
	}); err != nil {
		return err
	}
	return setBool(ctx.State, cellIssuePending, true)
}

// issueCallback receives the issuance result. On success the class
// identifier and display name are stored; on failure the payment is handed
// back to the collection owner. Either way the pending flag clears, so a
// failed issuance can simply be retried.
func issueCallback(ctx *vm.Context, job *vm.Job, res vm.AsyncResult) error {
	if err := setBool(ctx.State, cellIssuePending, false); err != nil {
		return err
	}
	if !res.Ok {
		owner, err := getStr(ctx.State, cellOwner)
		if err != nil {
			return err
		}
		return vm.Transfer(ctx.State, job.Holder, owner, res.ReturnedPayment)
	}

	var params token.IssueParams
	if err := json.Unmarshal(job.Params, &params); err != nil {
		return err
	}
	if err := setStr(ctx.State, cellNftTokenId, res.ClassID); err != nil {
		return err
	}
	return setStr(ctx.State, cellNftTokenName, params.Name)
}

// handleSetLocalRoles asks the system to grant the contract the unit-create
// role on the issued class. Without it every mint and giveaway fails.
func handleSetLocalRoles(ctx *vm.Context, payload json.RawMessage) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := requireNotPayable(ctx); err != nil {
		return err
	}
	classID, err := tokenID(ctx.State)
	if err != nil {
		return err
	}
	params, err := json.Marshal(vm.RoleParams{
		ClassID: classID,
		Address: ContractAddress,
		Role:    token.RoleCreateUnit,
	})
	if err != nil {
		return err
	}
	_, err = vm.Enqueue(ctx, &vm.Job{
		Kind:   vm.JobSetRole,
		Caller: ctx.Tx.From,
		Holder: vm.EscrowAddress,
		Params: params,
	})
	return err
}
