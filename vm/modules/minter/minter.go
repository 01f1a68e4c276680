// Package minter implements a limited-edition collection minter: a contract
// that issues a non-fungible token class, then sells sequentially indexed
// units of it against IPFS-hosted media. Supply is bounded globally and
// optionally per drop; buyers are bounded per address; exhausting the
// available supply pauses minting automatically.
//
// The token class is obtained through an async system call. Until the
// resolution lands, the collection sits in a pending state in which neither
// a second issuance nor any minting is possible.
package minter

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/crypto"
	"github.com/opaline-labs/mintchain/vm"
)

// ContractAddress is the reserved account that holds the collection's funds
// between a payment and its settlement.
var ContractAddress = crypto.Hash([]byte("mintchain/collection-minter"))[:40]

// issueCallbackName identifies the callback run when class issuance resolves.
const issueCallbackName = "minter.issue"

func init() {
	vm.Register(core.TxIssueToken, handleIssueToken)
	vm.Register(core.TxSetLocalRoles, handleSetLocalRoles)
	vm.Register(core.TxMint, handleMint)
	vm.Register(core.TxGiveaway, handleGiveaway)
	vm.Register(core.TxPauseMinting, handlePauseMinting)
	vm.Register(core.TxStartMinting, handleStartMinting)
	vm.Register(core.TxSetDrop, handleSetDrop)
	vm.Register(core.TxUnsetDrop, handleUnsetDrop)
	vm.Register(core.TxSetPrice, handleSetPrice)
	vm.Register(core.TxClaimFunds, handleClaimFunds)
	vm.Register(core.TxShuffle, handleShuffle)
	vm.RegisterCallback(issueCallbackName, issueCallback)
}

// DeployParams configure the collection at genesis.
type DeployParams struct {
	Owner                 string   `json:"owner"`
	ImageBaseCid          string   `json:"image_base_cid"`
	MetadataBaseCid       string   `json:"metadata_base_cid"`
	AmountOfTokens        uint32   `json:"amount_of_tokens"`
	TokensLimitPerAddress uint32   `json:"tokens_limit_per_address"`
	Royalties             uint32   `json:"royalties"` // basis points
	SellingPrice          *big.Int `json:"selling_price"`
	FileExtension         string   `json:"file_extension,omitempty"` // defaults to .png
	Tags                  string   `json:"tags,omitempty"`
	ProvenanceHash        string   `json:"provenance_hash,omitempty"`
}

// Deploy validates params and writes the collection configuration.
// The collection starts paused; the owner starts minting explicitly once the
// token is issued and the create role is granted.
func Deploy(st core.State, p DeployParams) error {
	if p.Owner == "" {
		return errors.New("collection owner required")
	}
	if p.ImageBaseCid == "" || p.MetadataBaseCid == "" {
		return errors.New("image and metadata base CIDs required")
	}
	if p.AmountOfTokens < 1 {
		return errors.New("amount of tokens must be at least 1")
	}
	if p.TokensLimitPerAddress < 1 {
		return errors.New("tokens limit per address must be at least 1")
	}
	if p.Royalties > royaltiesMax {
		return fmt.Errorf("royalties %d exceed maximum %d", p.Royalties, royaltiesMax)
	}
	ext := p.FileExtension
	if ext == "" {
		ext = defaultImgExt
	}

	if err := setStr(st, cellOwner, p.Owner); err != nil {
		return err
	}
	if err := setStr(st, cellImageBaseCid, p.ImageBaseCid); err != nil {
		return err
	}
	if err := setStr(st, cellMetadataBaseCid, p.MetadataBaseCid); err != nil {
		return err
	}
	if err := setStr(st, cellFileExtension, ext); err != nil {
		return err
	}
	if err := setStr(st, cellTags, p.Tags); err != nil {
		return err
	}
	if err := setStr(st, cellProvenanceHash, p.ProvenanceHash); err != nil {
		return err
	}
	if err := setUint32(st, cellRoyalties, p.Royalties); err != nil {
		return err
	}
	if err := setUint32(st, cellAmountOfTokens, p.AmountOfTokens); err != nil {
		return err
	}
	if err := setUint32(st, cellTokensLimitPerAddr, p.TokensLimitPerAddress); err != nil {
		return err
	}
	if err := setBig(st, cellSellingPrice, p.SellingPrice); err != nil {
		return err
	}
	if err := setUint32(st, cellNextIndexToMint, 1); err != nil {
		return err
	}
	return setBool(st, cellPaused, true)
}

// requireOwner checks that the caller is the collection owner.
func requireOwner(ctx *vm.Context) error {
	owner, err := getStr(ctx.State, cellOwner)
	if err != nil {
		return err
	}
	if owner == "" || ctx.Tx.From != owner {
		return ErrNotOwner
	}
	return nil
}

// requireNotPayable rejects attached value on non-payable endpoints.
func requireNotPayable(ctx *vm.Context) error {
	if ctx.Tx.AttachedValue().Sign() != 0 {
		return ErrNotPayable
	}
	return nil
}

// tokenID returns the issued class identifier, or ErrTokenNotIssued.
func tokenID(st core.State) (string, error) {
	id, err := getStr(st, cellNftTokenId)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrTokenNotIssued
	}
	return id, nil
}
