package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/indexer"
	"github.com/opaline-labs/mintchain/vm/modules/minter"
)

// Handler dispatches JSON-RPC methods against the node's components.
type Handler struct {
	chainID string
	chain   *core.Blockchain
	mempool *core.Mempool
	state   core.State
	index   *indexer.Indexer
}

// NewHandler wires an RPC handler.
func NewHandler(chainID string, chain *core.Blockchain, mempool *core.Mempool, state core.State, index *indexer.Indexer) *Handler {
	return &Handler{chainID: chainID, chain: chain, mempool: mempool, state: state, index: index}
}

// Handle executes one request and returns the response.
func (h *Handler) Handle(req Request) Response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "invalid request")
	}
	result, err := h.dispatch(req.Method, req.Params)
	if err != nil {
		if rpcErr, ok := err.(*Error); ok {
			return Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID}
		}
		return errorResponse(req.ID, codeServerError, err.Error())
	}
	return resultResponse(req.ID, result)
}

func (h *Handler) dispatch(method string, params json.RawMessage) (any, error) {
	switch method {
	case "getBlockHeight":
		return h.chain.Height(), nil
	case "getBlock":
		return h.getBlock(params)
	case "getBalance":
		return h.getBalance(params)
	case "getMempoolSize":
		return h.mempool.Size(), nil
	case "sendTx":
		return h.sendTx(params)
	case "getUnitsByOwner":
		return h.getUnitsByOwner(params)
	case "getMintedPerAddress":
		return h.getMintedPerAddress(params)
	case "dropTokensLeft":
		return minter.DropTokensLeft(h.state)
	case "totalTokensLeft":
		return minter.TotalTokensLeft(h.state)
	case "getNftTokenId":
		return minter.TokenID(h.state)
	case "getNftTokenName":
		return minter.TokenName(h.state)
	case "getNftPrice":
		price, err := minter.Price(h.state)
		if err != nil {
			return nil, err
		}
		return price.String(), nil
	case "provenanceHash":
		return minter.ProvenanceHash(h.state)
	case "isMintingPaused":
		return minter.IsPaused(h.state)
	case "getCollectionStatus":
		return h.getCollectionStatus()
	default:
		return nil, &Error{Code: codeMethodNotFound, Message: fmt.Sprintf("method %q not found", method)}
	}
}

func (h *Handler) getBlock(params json.RawMessage) (any, error) {
	var p blockParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &Error{Code: codeInvalidParams, Message: err.Error()}
	}
	switch {
	case p.Hash != "":
		return h.chain.GetBlock(p.Hash)
	case p.Height != nil:
		return h.chain.GetBlockByHeight(*p.Height)
	default:
		return nil, &Error{Code: codeInvalidParams, Message: "hash or height required"}
	}
}

func (h *Handler) getBalance(params json.RawMessage) (any, error) {
	var p addressParams
	if err := json.Unmarshal(params, &p); err != nil || p.Address == "" {
		return nil, &Error{Code: codeInvalidParams, Message: "address required"}
	}
	acc, err := h.state.GetAccount(p.Address)
	if err != nil {
		return nil, err
	}
	return balanceResult{Address: acc.Address, Balance: acc.Balance.String(), Nonce: acc.Nonce}, nil
}

// sendTx validates and enqueues an externally signed transaction. The ID is
// recomputed server-side so a client cannot submit under a forged identity.
func (h *Handler) sendTx(params json.RawMessage) (any, error) {
	var tx core.Transaction
	if err := json.Unmarshal(params, &tx); err != nil {
		return nil, &Error{Code: codeInvalidParams, Message: err.Error()}
	}
	if tx.Internal() {
		return nil, &Error{Code: codeInvalidParams, Message: "internal transaction type not accepted"}
	}
	if tx.ChainID != h.chainID {
		return nil, &Error{Code: codeInvalidParams, Message: fmt.Sprintf("wrong chain id %q", tx.ChainID)}
	}
	tx.ID = tx.Hash()
	if err := h.mempool.Add(&tx); err != nil {
		return nil, err
	}
	return tx.ID, nil
}

func (h *Handler) getUnitsByOwner(params json.RawMessage) (any, error) {
	var p addressParams
	if err := json.Unmarshal(params, &p); err != nil || p.Address == "" {
		return nil, &Error{Code: codeInvalidParams, Message: "address required"}
	}
	units, err := h.index.UnitsByOwner(p.Address)
	if err != nil {
		return nil, err
	}
	if units == nil {
		units = []indexer.OwnedUnit{}
	}
	return units, nil
}

func (h *Handler) getMintedPerAddress(params json.RawMessage) (any, error) {
	var p addressParams
	if err := json.Unmarshal(params, &p); err != nil || p.Address == "" {
		return nil, &Error{Code: codeInvalidParams, Message: "address required"}
	}
	return minter.MintedPerAddress(h.state, p.Address)
}

func (h *Handler) getCollectionStatus() (any, error) {
	tokenID, err := minter.TokenID(h.state)
	if err != nil {
		return nil, err
	}
	tokenName, err := minter.TokenName(h.state)
	if err != nil {
		return nil, err
	}
	price, err := minter.Price(h.state)
	if err != nil {
		return nil, err
	}
	paused, err := minter.IsPaused(h.state)
	if err != nil {
		return nil, err
	}
	total, err := minter.TotalTokensLeft(h.state)
	if err != nil {
		return nil, err
	}
	drop, err := minter.DropTokensLeft(h.state)
	if err != nil {
		return nil, err
	}
	prov, err := minter.ProvenanceHash(h.state)
	if err != nil {
		return nil, err
	}
	return collectionStatusResult{
		TokenID:         tokenID,
		TokenName:       tokenName,
		Price:           price.String(),
		Paused:          paused,
		TotalTokensLeft: total,
		DropTokensLeft:  drop,
		ProvenanceHash:  prov,
	}, nil
}
