// Package memory implements storeng.Engine as five in-process maps. It
// carries no internal locking: the façade's single coarse mutex is the
// only synchronization.
package memory

import (
	"rubin.dev/sequencer/storeng"
)

// Engine is the in-memory backend: five mappings with no internal lock
// of their own.
type Engine struct {
	transactions map[string][]byte
	blocksByHash map[string][]byte
	blocksByHeight map[string][]byte
	receipts     map[string][]byte
	values       map[string][]byte
}

// New constructs an empty in-memory engine.
func New() *Engine {
	return &Engine{
		transactions:   make(map[string][]byte),
		blocksByHash:   make(map[string][]byte),
		blocksByHeight: make(map[string][]byte),
		receipts:       make(map[string][]byte),
		values:         make(map[string][]byte),
	}
}

func get(m map[string][]byte, key []byte) ([]byte, error) {
	v, ok := m[string(key)]
	if !ok {
		return nil, storeng.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func put(m map[string][]byte, key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	m[string(key)] = cp
}

// AddTransaction overwrites any existing entry for the same key — the
// in-memory backend does not enforce write-once semantics.
func (e *Engine) AddTransaction(key, value []byte) error {
	put(e.transactions, key, value)
	return nil
}

func (e *Engine) GetTransaction(key []byte) ([]byte, error) {
	return get(e.transactions, key)
}

func (e *Engine) AddBlock(hashKey, heightKey, value []byte) error {
	put(e.blocksByHash, hashKey, value)
	put(e.blocksByHeight, heightKey, value)
	return nil
}

func (e *Engine) GetBlockByHash(key []byte) ([]byte, error) {
	return get(e.blocksByHash, key)
}

func (e *Engine) GetBlockByHeight(key []byte) ([]byte, error) {
	return get(e.blocksByHeight, key)
}

func (e *Engine) AddReceipt(key, value []byte) error {
	put(e.receipts, key, value)
	return nil
}

func (e *Engine) GetReceipt(key []byte) ([]byte, error) {
	return get(e.receipts, key)
}

func (e *Engine) SetValue(key, value []byte) error {
	put(e.values, key, value)
	return nil
}

func (e *Engine) GetValue(key []byte) ([]byte, error) {
	return get(e.values, key)
}

func (e *Engine) Close() error { return nil }

var _ storeng.Engine = (*Engine)(nil)
