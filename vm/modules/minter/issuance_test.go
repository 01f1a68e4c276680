package minter

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/token"
	"github.com/opaline-labs/mintchain/vm"
)

func TestIssueTokenFlow(t *testing.T) {
	e := newEnv(t, nil)
	ownerStart := new(big.Int).Set(e.balance(e.owner.addr))

	if err := e.exec(e.alice, core.TxIssueToken, token.ClassIssueCost, core.IssueTokenPayload{Name: "N", Ticker: "OPA"}); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected owner error, got %v", err)
	}

	if err := e.exec(e.owner, core.TxIssueToken, token.ClassIssueCost, core.IssueTokenPayload{Name: "Opaline Apes", Ticker: "OPA"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	// Second dispatch while the first is in flight.
	if err := e.exec(e.owner, core.TxIssueToken, token.ClassIssueCost, core.IssueTokenPayload{Name: "Other", Ticker: "OTH"}); !errors.Is(err, ErrIssueInProgress) {
		t.Errorf("expected in-progress error, got %v", err)
	}
	if id, _ := TokenID(e.st); id != "" {
		t.Error("token id must stay empty until resolution")
	}

	e.resolveAll()

	id, err := TokenID(e.st)
	if err != nil || id == "" {
		t.Fatalf("token id after resolution: %q, %v", id, err)
	}
	if !strings.HasPrefix(id, "OPA-") {
		t.Errorf("class id %q must carry the ticker", id)
	}
	if name, _ := TokenName(e.st); name != "Opaline Apes" {
		t.Errorf("token name = %q", name)
	}
	cls, err := token.GetClass(e.st, id)
	if err != nil {
		t.Fatal(err)
	}
	if cls.Owner != ContractAddress {
		t.Errorf("class owner = %s, want contract", cls.Owner)
	}
	if cls.Props.CanFreeze || cls.Props.CanWipe || cls.Props.CanPause || cls.Props.CanChangeOwner || cls.Props.CanUpgrade {
		t.Error("only can_add_special_roles may be set")
	}
	if !cls.Props.CanAddSpecialRoles {
		t.Error("can_add_special_roles must be set")
	}

	// The issue cost was consumed, nothing lingers on the contract.
	spent := new(big.Int).Sub(ownerStart, e.balance(e.owner.addr))
	if spent.Cmp(token.ClassIssueCost) != 0 {
		t.Errorf("owner spent %s, want %s", spent, token.ClassIssueCost)
	}
	if e.balance(ContractAddress).Sign() != 0 {
		t.Errorf("contract balance = %s", e.balance(ContractAddress))
	}

	// A collection has exactly one token class.
	if err := e.exec(e.owner, core.TxIssueToken, token.ClassIssueCost, core.IssueTokenPayload{Name: "Again", Ticker: "AGN"}); !errors.Is(err, ErrAlreadyIssued) {
		t.Errorf("expected already-issued error, got %v", err)
	}
}

func TestIssueTokenUnderpaidRefunds(t *testing.T) {
	e := newEnv(t, nil)
	ownerStart := new(big.Int).Set(e.balance(e.owner.addr))
	short := new(big.Int).Sub(token.ClassIssueCost, big.NewInt(1))

	if err := e.exec(e.owner, core.TxIssueToken, short, core.IssueTokenPayload{Name: "N", Ticker: "OPA"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	e.resolveAll()

	if id, _ := TokenID(e.st); id != "" {
		t.Error("underpaid issuance must not produce a token")
	}
	if e.balance(e.owner.addr).Cmp(ownerStart) != 0 {
		t.Errorf("owner balance = %s, want full refund to %s", e.balance(e.owner.addr), ownerStart)
	}

	// The pending flag cleared, so the owner can retry with the right cost.
	if err := e.exec(e.owner, core.TxIssueToken, token.ClassIssueCost, core.IssueTokenPayload{Name: "N", Ticker: "OPA"}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	e.resolveAll()
	if id, _ := TokenID(e.st); id == "" {
		t.Error("retry must succeed")
	}
}

func TestClaimFundsWhilePendingKeepsDeposit(t *testing.T) {
	e := newEnv(t, nil)
	ownerStart := new(big.Int).Set(e.balance(e.owner.addr))

	if err := e.exec(e.owner, core.TxIssueToken, token.ClassIssueCost, core.IssueTokenPayload{Name: "N", Ticker: "OPA"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	// Sweeping the contract account between dispatch and resolution must not
	// touch the escrowed issue cost.
	if err := e.exec(e.owner, core.TxClaimFunds, nil, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}
	e.resolveAll()

	if id, _ := TokenID(e.st); id == "" {
		t.Fatal("issuance must still resolve after a sweep")
	}
	if ids, err := vm.PendingJobIDs(e.st); err != nil || len(ids) != 0 {
		t.Errorf("job queue = %v, %v", ids, err)
	}
	if pending, _ := getBool(e.st, cellIssuePending); pending {
		t.Error("pending flag must clear on resolution")
	}
	spent := new(big.Int).Sub(ownerStart, e.balance(e.owner.addr))
	if spent.Cmp(token.ClassIssueCost) != 0 {
		t.Errorf("owner spent %s, want exactly the issue cost %s", spent, token.ClassIssueCost)
	}
}

func TestSetLocalRolesRequiresIssuance(t *testing.T) {
	e := newEnv(t, nil)
	if err := e.exec(e.owner, core.TxSetLocalRoles, nil, nil); !errors.Is(err, ErrTokenNotIssued) {
		t.Errorf("expected not-issued error, got %v", err)
	}
	if err := e.exec(e.alice, core.TxSetLocalRoles, nil, nil); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected owner error, got %v", err)
	}
}

func TestSetLocalRolesGrantsCreateRole(t *testing.T) {
	e := newEnv(t, nil)
	if err := e.exec(e.owner, core.TxIssueToken, token.ClassIssueCost, core.IssueTokenPayload{Name: "N", Ticker: "OPA"}); err != nil {
		t.Fatal(err)
	}
	e.resolveAll()
	classID, _ := TokenID(e.st)

	if has, _ := token.HasRole(e.st, classID, ContractAddress, token.RoleCreateUnit); has {
		t.Fatal("role must not exist before the grant resolves")
	}
	if err := e.exec(e.owner, core.TxSetLocalRoles, nil, nil); err != nil {
		t.Fatal(err)
	}
	e.resolveAll()
	if has, _ := token.HasRole(e.st, classID, ContractAddress, token.RoleCreateUnit); !has {
		t.Error("role missing after resolution")
	}
}
