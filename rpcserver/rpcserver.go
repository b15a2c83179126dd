// Package rpcserver exposes a read-only JSON-RPC 2.0 surface over the
// store façade: starknet_blockNumber, starknet_getBlockWithTxs,
// starknet_getTransactionByHash and starknet_getTransactionReceipt,
// routed through github.com/gorilla/mux.
package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"rubin.dev/sequencer/store"
	"rubin.dev/sequencer/types"
)

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// response is a JSON-RPC 2.0 response envelope; exactly one of Result or
// Error is populated.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Server is the JSON-RPC HTTP server. It only reads from the store
// façade; it never mutates chain state.
type Server struct {
	chain *store.Store
	log   *zap.Logger
	http  *http.Server
}

// New constructs a Server bound to addr, serving against chain.
func New(addr string, chain *store.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{chain: chain, log: log}
	router := mux.NewRouter()
	router.HandleFunc("/", s.handle).Methods(http.MethodPost)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down or an
// unrecoverable error occurs.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParseError, "parse error")
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeError(w, req.ID, codeInvalidRequest, "invalid request")
		return
	}

	result, rpcErr := s.dispatch(req.Method, req.Params)
	if rpcErr != nil {
		writeErr(w, req.ID, rpcErr)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(method string, params json.RawMessage) (any, *rpcError) {
	switch method {
	case "starknet_blockNumber":
		return s.blockNumber()
	case "starknet_getBlockWithTxs":
		return s.getBlockWithTxs(params)
	case "starknet_getTransactionByHash":
		return s.getTransactionByHash(params)
	case "starknet_getTransactionReceipt":
		return s.getTransactionReceipt(params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + method}
	}
}

func (s *Server) blockNumber() (any, *rpcError) {
	h, err := s.chain.GetHeight()
	if err != nil {
		s.log.Error("rpcserver: get height failed", zap.Error(err))
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}
	return h, nil
}

type blockIDParams struct {
	BlockID json.RawMessage `json:"block_id"`
}

func (s *Server) getBlockWithTxs(params json.RawMessage) (any, *rpcError) {
	var p []blockIDParams
	if err := json.Unmarshal(params, &p); err != nil || len(p) != 1 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "expected [block_id]"}
	}
	var tagOrHeight any
	if err := json.Unmarshal(p[0].BlockID, &tagOrHeight); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid block_id"}
	}

	var (
		m     types.MaybePendingBlockWithTxs
		found bool
		err   error
	)
	switch v := tagOrHeight.(type) {
	case string:
		if v == "latest" || v == "pending" {
			m, found, err = s.chain.Latest()
		} else {
			var hash types.Felt
			if hash, err = types.FeltFromHex(v); err == nil {
				m, found, err = s.chain.GetBlockByHash(hash)
			}
		}
	case float64:
		m, found, err = s.chain.GetBlockByHeight(uint64(v))
	default:
		return nil, &rpcError{Code: codeInvalidParams, Message: "unsupported block_id shape"}
	}
	if err != nil {
		s.log.Error("rpcserver: get block failed", zap.Error(err))
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}
	if !found {
		return nil, &rpcError{Code: codeInvalidParams, Message: "block not found"}
	}
	return m, nil
}

func (s *Server) getTransactionByHash(params json.RawMessage) (any, *rpcError) {
	var p []string
	if err := json.Unmarshal(params, &p); err != nil || len(p) != 1 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "expected [transaction_hash]"}
	}
	hash, err := types.FeltFromHex(p[0])
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid transaction_hash"}
	}
	tx, found, err := s.chain.GetTransaction(hash)
	if err != nil {
		s.log.Error("rpcserver: get transaction failed", zap.Error(err))
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}
	if !found {
		return nil, &rpcError{Code: codeInvalidParams, Message: "transaction not found"}
	}
	return tx, nil
}

func (s *Server) getTransactionReceipt(params json.RawMessage) (any, *rpcError) {
	var p []string
	if err := json.Unmarshal(params, &p); err != nil || len(p) != 1 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "expected [transaction_hash]"}
	}
	hash, err := types.FeltFromHex(p[0])
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid transaction_hash"}
	}
	r, found, err := s.chain.GetReceipt(hash)
	if err != nil {
		s.log.Error("rpcserver: get receipt failed", zap.Error(err))
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}
	if !found {
		return nil, &rpcError{Code: codeInvalidParams, Message: "receipt not found"}
	}
	return r, nil
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

func writeErr(w http.ResponseWriter, id json.RawMessage, rpcErr *rpcError) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response{JSONRPC: "2.0", ID: id, Error: rpcErr})
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	writeErr(w, id, &rpcError{Code: code, Message: message})
}
