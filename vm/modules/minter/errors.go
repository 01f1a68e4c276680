package minter

import "errors"

var (
	ErrNotOwner                = errors.New("caller is not the collection owner")
	ErrAlreadyIssued           = errors.New("token already issued")
	ErrIssueInProgress         = errors.New("token issuance already in progress")
	ErrTokenNotIssued          = errors.New("token not issued")
	ErrRoleMissing             = errors.New("create role not granted yet")
	ErrMintingPaused           = errors.New("minting is paused")
	ErrSupplyExhausted         = errors.New("no tokens left to mint")
	ErrPerAddressLimitExceeded = errors.New("tokens limit per address exceeded")
	ErrInvalidPayment          = errors.New("attached payment does not match required amount")
	ErrNotPayable              = errors.New("endpoint is not payable")
)
