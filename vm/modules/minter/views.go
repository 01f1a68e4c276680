package minter

import (
	"math/big"

	"github.com/opaline-labs/mintchain/core"
)

// Read-only accessors used by the RPC view endpoints.

// TokenID returns the issued class identifier, empty before issuance.
func TokenID(st core.State) (string, error) {
	return getStr(st, cellNftTokenId)
}

// TokenName returns the collection's display name, empty before issuance.
func TokenName(st core.State) (string, error) {
	return getStr(st, cellNftTokenName)
}

// Price returns the current selling price per unit.
func Price(st core.State) (*big.Int, error) {
	return getBig(st, cellSellingPrice)
}

// ProvenanceHash returns the optional collection provenance hash.
func ProvenanceHash(st core.State) (string, error) {
	return getStr(st, cellProvenanceHash)
}

// IsPaused reports whether minting is currently paused.
func IsPaused(st core.State) (bool, error) {
	return getBool(st, cellPaused)
}

// MintedPerAddress returns how many units addr has minted (or, for the
// owner, given away).
func MintedPerAddress(st core.State, addr string) (uint32, error) {
	return getUint32(st, cellMintedPerAddr+addr)
}

// Owner returns the collection owner address.
func Owner(st core.State) (string, error) {
	return getStr(st, cellOwner)
}
