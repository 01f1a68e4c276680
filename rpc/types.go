package rpc

import "encoding/json"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// Error is a JSON-RPC 2.0 error object. It implements the error interface so
// dispatch methods can return it through a plain error and Handle can map it
// back onto the response envelope with its code intact.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func errorResponse(id any, code int, message string) Response {
	return Response{JSONRPC: "2.0", Error: &Error{Code: code, Message: message}, ID: id}
}

func resultResponse(id any, result any) Response {
	return Response{JSONRPC: "2.0", Result: result, ID: id}
}

// ---- Params / results ----

type addressParams struct {
	Address string `json:"address"`
}

type blockParams struct {
	Hash   string `json:"hash,omitempty"`
	Height *int64 `json:"height,omitempty"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type collectionStatusResult struct {
	TokenID         string `json:"token_id"`
	TokenName       string `json:"token_name"`
	Price           string `json:"price"`
	Paused          bool   `json:"paused"`
	TotalTokensLeft uint32 `json:"total_tokens_left"`
	DropTokensLeft  uint32 `json:"drop_tokens_left"`
	ProvenanceHash  string `json:"provenance_hash"`
}
