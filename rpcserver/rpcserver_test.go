package rpcserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rubin.dev/sequencer/store"
	"rubin.dev/sequencer/storeng/memory"
	"rubin.dev/sequencer/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.New(memory.New(), "memory")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return New("127.0.0.1:0", s, nil)
}

func call(t *testing.T, s *Server, body string) response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	s.handle(w, req)
	var resp response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, w.Body.String())
	}
	return resp
}

func TestHandleParseError(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, "{not json")
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("resp.Error = %+v, want parse error", resp.Error)
	}
}

func TestHandleInvalidRequestMissingMethod(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Fatalf("resp.Error = %+v, want invalid request", resp.Error)
	}
}

func TestHandleMethodNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_bogus"}`)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("resp.Error = %+v, want method not found", resp.Error)
	}
}

func TestHandleBlockNumber(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_blockNumber"}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.Result.(float64) != 0 {
		t.Fatalf("result = %v, want 0", resp.Result)
	}
}

func TestHandleGetTransactionByHashNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_getTransactionByHash","params":["0x1"]}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("resp.Error = %+v, want invalid params (not found)", resp.Error)
	}
}

func TestHandleGetTransactionByHashInvalidHex(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_getTransactionByHash","params":["not-hex"]}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("resp.Error = %+v, want invalid params", resp.Error)
	}
}

func TestHandleGetTransactionByHashFound(t *testing.T) {
	s := newTestServer(t)
	tx := types.Transaction{Kind: types.TxKindInvokeV1, TransactionHash: types.FeltFromUint64(42)}
	if err := s.chain.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_getTransactionByHash","params":["`+tx.TransactionHash.Hex()+`"]}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleGetBlockWithTxsByLatest(t *testing.T) {
	s := newTestServer(t)
	block := types.BlockWithTxs{BlockHash: types.FeltFromUint64(7), BlockNumber: 1}
	if err := s.chain.AddBlock(block); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if err := s.chain.SetHeight(1); err != nil {
		t.Fatalf("SetHeight: %v", err)
	}

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_getBlockWithTxs","params":[{"block_id":"latest"}]}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleGetBlockWithTxsByHeight(t *testing.T) {
	s := newTestServer(t)
	block := types.BlockWithTxs{BlockHash: types.FeltFromUint64(7), BlockNumber: 1}
	if err := s.chain.AddBlock(block); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_getBlockWithTxs","params":[{"block_id":1}]}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleGetBlockWithTxsNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_getBlockWithTxs","params":[{"block_id":99}]}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("resp.Error = %+v, want invalid params (not found)", resp.Error)
	}
}

func TestHandleGetTransactionReceiptNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"starknet_getTransactionReceipt","params":["0x1"]}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("resp.Error = %+v, want invalid params (not found)", resp.Error)
	}
}
