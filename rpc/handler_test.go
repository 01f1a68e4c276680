package rpc

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/events"
	"github.com/opaline-labs/mintchain/indexer"
	"github.com/opaline-labs/mintchain/internal/testutil"
	"github.com/opaline-labs/mintchain/storage"
	"github.com/opaline-labs/mintchain/vm/modules/minter"
	"github.com/opaline-labs/mintchain/wallet"
)

const testChainID = "test-chain"

func newHandler(t *testing.T) (*Handler, *storage.StateDB, *core.Mempool) {
	t.Helper()
	db := testutil.NewMemDB()
	chain := core.NewBlockchain(storage.NewBlockStore(db))
	if err := chain.Init(); err != nil {
		t.Fatal(err)
	}
	state := storage.NewStateDB(db)
	mempool := core.NewMempool()
	ix := indexer.New(db, events.NewEmitter())

	if err := minter.Deploy(state, minter.DeployParams{
		Owner:                 "owner",
		ImageBaseCid:          "img",
		MetadataBaseCid:       "meta",
		AmountOfTokens:        10,
		TokensLimitPerAddress: 3,
		Royalties:             250,
		SellingPrice:          big.NewInt(50),
		ProvenanceHash:        "prov",
	}); err != nil {
		t.Fatal(err)
	}
	return NewHandler(testChainID, chain, mempool, state, ix), state, mempool
}

func call(t *testing.T, h *Handler, method string, params any) Response {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			t.Fatal(err)
		}
		raw = data
	}
	return h.Handle(Request{JSONRPC: "2.0", Method: method, Params: raw, ID: 1})
}

func TestErrorUsableAsError(t *testing.T) {
	var err error = &Error{Code: codeServerError, Message: "boom"}
	if err.Error() != "boom" {
		t.Errorf("message = %q", err.Error())
	}
	// Handle recovers the code by asserting back to *Error.
	rpcErr, ok := err.(*Error)
	if !ok || rpcErr.Code != codeServerError {
		t.Errorf("assertion failed: %+v", err)
	}
}

func TestHandleInvalidRequest(t *testing.T) {
	h, _, _ := newHandler(t)
	resp := h.Handle(Request{JSONRPC: "1.0", Method: "getBlockHeight"})
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleMethodNotFound(t *testing.T) {
	h, _, _ := newHandler(t)
	resp := call(t, h, "noSuchMethod", nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetBalance(t *testing.T) {
	h, state, _ := newHandler(t)
	_ = state.SetAccount(&core.Account{Address: "alice", Balance: big.NewInt(777), Nonce: 2})

	resp := call(t, h, "getBalance", addressParams{Address: "alice"})
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	res, ok := resp.Result.(balanceResult)
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}
	if res.Balance != "777" || res.Nonce != 2 {
		t.Errorf("result = %+v", res)
	}

	resp = call(t, h, "getBalance", addressParams{})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Error("missing address must be invalid params")
	}
}

func TestSendTx(t *testing.T) {
	h, _, mempool := newHandler(t)
	w, err := wallet.New()
	if err != nil {
		t.Fatal(err)
	}

	tx, err := w.Mint(testChainID, 0, 1, big.NewInt(50))
	if err != nil {
		t.Fatal(err)
	}
	resp := call(t, h, "sendTx", tx)
	if resp.Error != nil {
		t.Fatalf("sendTx: %+v", resp.Error)
	}
	if resp.Result.(string) != tx.ID {
		t.Error("returned ID must match the content hash")
	}
	if mempool.Size() != 1 {
		t.Errorf("mempool size = %d", mempool.Size())
	}
}

func TestSendTxRejectsWrongChain(t *testing.T) {
	h, _, mempool := newHandler(t)
	w, _ := wallet.New()
	tx, _ := w.Mint("other-chain", 0, 1, big.NewInt(50))

	resp := call(t, h, "sendTx", tx)
	if resp.Error == nil {
		t.Error("wrong chain id must be rejected")
	}
	if mempool.Size() != 0 {
		t.Error("rejected tx must not enter the pool")
	}
}

func TestSendTxRejectsInternal(t *testing.T) {
	h, _, _ := newHandler(t)
	tx, _ := core.NewSystemTx(testChainID, core.TxResolveAsync, core.ResolveAsyncPayload{JobID: "j"})
	resp := call(t, h, "sendTx", tx)
	if resp.Error == nil {
		t.Error("internal tx must be rejected")
	}
}

func TestCollectionViews(t *testing.T) {
	h, _, _ := newHandler(t)

	if resp := call(t, h, "getNftPrice", nil); resp.Result.(string) != "50" {
		t.Errorf("price = %v", resp.Result)
	}
	if resp := call(t, h, "totalTokensLeft", nil); resp.Result.(uint32) != 10 {
		t.Errorf("total left = %v", resp.Result)
	}
	if resp := call(t, h, "dropTokensLeft", nil); resp.Result.(uint32) != 0 {
		t.Errorf("drop left = %v", resp.Result)
	}
	if resp := call(t, h, "provenanceHash", nil); resp.Result.(string) != "prov" {
		t.Errorf("provenance = %v", resp.Result)
	}
	if resp := call(t, h, "getNftTokenId", nil); resp.Result.(string) != "" {
		t.Error("token id must be empty before issuance")
	}
	if resp := call(t, h, "isMintingPaused", nil); resp.Result.(bool) != true {
		t.Error("fresh collection must report paused")
	}

	resp := call(t, h, "getCollectionStatus", nil)
	status, ok := resp.Result.(collectionStatusResult)
	if !ok {
		t.Fatalf("result type %T", resp.Result)
	}
	if status.Price != "50" || status.TotalTokensLeft != 10 || !status.Paused {
		t.Errorf("status = %+v", status)
	}
}

func TestGetUnitsByOwnerEmpty(t *testing.T) {
	h, _, _ := newHandler(t)
	resp := call(t, h, "getUnitsByOwner", addressParams{Address: "alice"})
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	units, ok := resp.Result.([]indexer.OwnedUnit)
	if !ok || len(units) != 0 {
		t.Errorf("result = %#v", resp.Result)
	}
}
