// Package token implements the runtime's native token primitives: issuing a
// non-fungible token class, granting special roles on it, and creating and
// transferring single units. All records live in contract-visible state
// cells, so every mutation participates in per-call snapshots and the state
// root.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/crypto"
)

// RoleCreateUnit allows its holder to create new units of a class.
const RoleCreateUnit = "unit-create"

// ClassIssueCost is the native-currency cost of issuing a token class.
// Underpaid issuance requests fail at resolution and are refunded.
var ClassIssueCost = big.NewInt(50_000_000_000_000_000) // 0.05 in 18-decimal units

var (
	ErrClassNotFound   = errors.New("token class not found")
	ErrClassExists     = errors.New("token class already exists")
	ErrUnitNotFound    = errors.New("token unit not found")
	ErrNoRole          = errors.New("required role not granted")
	ErrRolesImmutable  = errors.New("class does not allow granting special roles")
	ErrInsufficientFee = errors.New("insufficient issue cost")
)

const (
	cellClassPrefix = "tok:class:"
	cellRolePrefix  = "tok:role:"
	cellUnitPrefix  = "tok:unit:"
)

// Properties is the capability set fixed at class issuance.
type Properties struct {
	CanFreeze          bool `json:"can_freeze"`
	CanWipe            bool `json:"can_wipe"`
	CanPause           bool `json:"can_pause"`
	CanChangeOwner     bool `json:"can_change_owner"`
	CanUpgrade         bool `json:"can_upgrade"`
	CanAddSpecialRoles bool `json:"can_add_special_roles"`
}

// Class is an issued non-fungible token class.
type Class struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Ticker    string     `json:"ticker"`
	Owner     string     `json:"owner"`
	Props     Properties `json:"props"`
	NextNonce uint64     `json:"next_nonce"` // last allocated unit nonce
}

// Unit is a single minted item of a class. Amount is always 1.
type Unit struct {
	ClassID    string   `json:"class_id"`
	Nonce      uint64   `json:"nonce"`
	Name       string   `json:"name"`
	Royalties  uint32   `json:"royalties"` // basis points
	Hash       string   `json:"hash"`      // attribute digest, hex
	Attributes []byte   `json:"attributes"`
	URIs       []string `json:"uris"`
	Owner      string   `json:"owner"`
	Amount     uint32   `json:"amount"`
}

// IssueParams describes a class-issuance request.
type IssueParams struct {
	Name   string     `json:"name"`
	Ticker string     `json:"ticker"`
	Owner  string     `json:"owner"`
	Props  Properties `json:"props"`
}

// IssueClass validates params and payment, derives the class identifier from
// the ticker plus entropy (TICKER-xxxxxx), and stores the class. The entropy
// is the resolving transaction's ID, so the identifier is deterministic per
// resolution.
func IssueClass(st core.State, p IssueParams, entropy string, payment *big.Int) (string, error) {
	if payment == nil || payment.Cmp(ClassIssueCost) < 0 {
		return "", ErrInsufficientFee
	}
	if p.Name == "" {
		return "", errors.New("class name required")
	}
	if err := validTicker(p.Ticker); err != nil {
		return "", err
	}
	if p.Owner == "" {
		return "", errors.New("class owner required")
	}

	id := p.Ticker + "-" + crypto.Hash([]byte(entropy))[:6]
	if _, err := GetClass(st, id); err == nil {
		return "", ErrClassExists
	} else if !errors.Is(err, ErrClassNotFound) {
		return "", err
	}

	cls := &Class{
		ID:     id,
		Name:   p.Name,
		Ticker: p.Ticker,
		Owner:  p.Owner,
		Props:  p.Props,
	}
	if err := putClass(st, cls); err != nil {
		return "", err
	}
	return id, nil
}

// GetClass loads a class by identifier.
func GetClass(st core.State, id string) (*Class, error) {
	data, err := st.GetCell(cellClassPrefix + id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}
	var cls Class
	if err := json.Unmarshal(data, &cls); err != nil {
		return nil, err
	}
	return &cls, nil
}

func putClass(st core.State, cls *Class) error {
	data, err := json.Marshal(cls)
	if err != nil {
		return err
	}
	return st.SetCell(cellClassPrefix+cls.ID, data)
}

// SetRole grants role on the class to addr. The class must have been issued
// with the can_add_special_roles capability.
func SetRole(st core.State, classID, addr, role string) error {
	cls, err := GetClass(st, classID)
	if err != nil {
		return err
	}
	if !cls.Props.CanAddSpecialRoles {
		return ErrRolesImmutable
	}
	roles, err := getRoles(st, classID, addr)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if r == role {
			return nil // already granted
		}
	}
	roles = append(roles, role)
	data, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	return st.SetCell(cellRolePrefix+classID+":"+addr, data)
}

// HasRole reports whether addr holds role on the class.
func HasRole(st core.State, classID, addr, role string) (bool, error) {
	roles, err := getRoles(st, classID, addr)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func getRoles(st core.State, classID, addr string) ([]string, error) {
	data, err := st.GetCell(cellRolePrefix + classID + ":" + addr)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var roles []string
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// CreateUnit allocates the next unit nonce of the class and stores the unit
// with the given royalties, attribute digest, attribute buffer and URIs.
// The creator must hold the create-unit role; the new unit is owned by the
// creator until transferred.
func CreateUnit(st core.State, classID, creator, name string, royalties uint32, hash string, attributes []byte, uris []string) (uint64, error) {
	cls, err := GetClass(st, classID)
	if err != nil {
		return 0, err
	}
	ok, err := HasRole(st, classID, creator, RoleCreateUnit)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoRole
	}

	cls.NextNonce++
	if err := putClass(st, cls); err != nil {
		return 0, err
	}

	unit := &Unit{
		ClassID:    classID,
		Nonce:      cls.NextNonce,
		Name:       name,
		Royalties:  royalties,
		Hash:       hash,
		Attributes: attributes,
		URIs:       uris,
		Owner:      creator,
		Amount:     1,
	}
	if err := putUnit(st, unit); err != nil {
		return 0, err
	}
	return unit.Nonce, nil
}

// GetUnit loads a unit by class identifier and nonce.
func GetUnit(st core.State, classID string, nonce uint64) (*Unit, error) {
	data, err := st.GetCell(unitKey(classID, nonce))
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	var unit Unit
	if err := json.Unmarshal(data, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

func putUnit(st core.State, unit *Unit) error {
	data, err := json.Marshal(unit)
	if err != nil {
		return err
	}
	return st.SetCell(unitKey(unit.ClassID, unit.Nonce), data)
}

func unitKey(classID string, nonce uint64) string {
	return cellUnitPrefix + classID + ":" + strconv.FormatUint(nonce, 10)
}

// TransferUnit moves a unit from one holder to another.
func TransferUnit(st core.State, classID string, nonce uint64, from, to string) error {
	unit, err := GetUnit(st, classID, nonce)
	if err != nil {
		return err
	}
	if unit.Owner != from {
		return fmt.Errorf("unit %s-%d not owned by %s", classID, nonce, from)
	}
	unit.Owner = to
	return putUnit(st, unit)
}

func validTicker(t string) error {
	if len(t) < 3 || len(t) > 10 {
		return fmt.Errorf("ticker length must be 3-10, got %d", len(t))
	}
	for _, c := range t {
		if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", c) {
			return errors.New("ticker must be uppercase alphanumeric")
		}
	}
	return nil
}
