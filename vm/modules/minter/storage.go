package minter

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/opaline-labs/mintchain/core"
)

// Contract storage cell and set names. Per-address counters use the
// cellMintedPerAddr prefix followed by the holder address.
const (
	cellOwner              = "minter:owner"
	cellImageBaseCid       = "minter:imageBaseCid"
	cellMetadataBaseCid    = "minter:metadataBaseCid"
	cellFileExtension      = "minter:fileExtension"
	cellTags               = "minter:tags"
	cellProvenanceHash     = "minter:provenanceHash"
	cellRoyalties          = "minter:royalties"
	cellAmountOfTokens     = "minter:amountOfTokens"
	cellTokensLimitPerAddr = "minter:tokensLimitPerAddress"
	cellSellingPrice       = "minter:sellingPrice"
	cellPaused             = "minter:paused"
	cellNextIndexToMint    = "minter:nextIndexToMint"
	cellNftTokenId         = "minter:nftTokenId"
	cellNftTokenName       = "minter:nftTokenName"
	cellIssuePending       = "minter:issuePending"
	cellTokensPerDrop      = "minter:amountOfTokensPerDrop"
	cellMintedPerAddr      = "minter:mintedPerAddress:"

	setMintedIndexes       = "minter:mintedIndexes"
	setMintedIndexesByDrop = "minter:mintedIndexesByDrop"
)

func getStr(st core.State, name string) (string, error) {
	data, err := st.GetCell(name)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func setStr(st core.State, name, val string) error {
	return st.SetCell(name, []byte(val))
}

func getUint32(st core.State, name string) (uint32, error) {
	data, err := st.GetCell(name)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(string(data), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("corrupt cell %q: %w", name, err)
	}
	return uint32(n), nil
}

func setUint32(st core.State, name string, val uint32) error {
	return st.SetCell(name, []byte(strconv.FormatUint(uint64(val), 10)))
}

func getBig(st core.State, name string) (*big.Int, error) {
	data, err := st.GetCell(name)
	if errors.Is(err, core.ErrNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return nil, fmt.Errorf("corrupt cell %q", name)
	}
	return n, nil
}

func setBig(st core.State, name string, val *big.Int) error {
	if val == nil {
		val = new(big.Int)
	}
	return st.SetCell(name, []byte(val.String()))
}

func getBool(st core.State, name string) (bool, error) {
	data, err := st.GetCell(name)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(data) == "1", nil
}

func setBool(st core.State, name string, val bool) error {
	if val {
		return st.SetCell(name, []byte("1"))
	}
	return st.SetCell(name, []byte("0"))
}

// cellExists reports presence regardless of value, used for the optional
// drop cap cell whose absence means no drop is active.
func cellExists(st core.State, name string) (bool, error) {
	_, err := st.GetCell(name)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
