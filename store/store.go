// Package store is the façade layer: a single, thread-safe, clone-able
// handle shared by the commit pipeline and the RPC server. It owns
// serialization, key encoding and height-counter maintenance; the
// underlying storeng.Engine only ever sees raw bytes.
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"rubin.dev/sequencer/metrics"
	"rubin.dev/sequencer/storeng"
	"rubin.dev/sequencer/types"
)

// heightKey is the META key for the height counter.
const heightKey = "height"

// Store is a thread-safe, clone-able façade over a storeng.Engine. It
// holds a reference-counted pointer to a mutex-guarded engine: cloning a
// Store (copying the struct) shares the same mutex and engine, the Go
// analogue of cloning an Arc<Mutex<dyn Engine>>.
type Store struct {
	mu      *sync.Mutex
	engine  storeng.Engine
	backend string
}

// New wraps engine behind a façade and ensures META["height"] is defined:
// on open, if height is absent, it is written as 0. backendName is used
// only to label metrics (e.g. "memory", "bolt", "pebble").
func New(engine storeng.Engine, backendName string) (*Store, error) {
	s := &Store{mu: &sync.Mutex{}, engine: engine, backend: backendName}
	if _, err := s.GetHeight(); err != nil {
		if err != storeng.ErrNotFound {
			return nil, fmt.Errorf("store: read height: %w", err)
		}
		if err := s.SetHeight(0); err != nil {
			return nil, fmt.Errorf("store: initialize height: %w", err)
		}
	}
	return s, nil
}

func (s *Store) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.StoreOps.WithLabelValues(op, s.backend, outcome).Inc()
}

// Clone returns a handle sharing the same mutex and engine — the Go
// analogue of cloning an Arc<Mutex<dyn Engine>>.
func (s *Store) Clone() *Store {
	return &Store{mu: s.mu, engine: s.engine, backend: s.backend}
}

func feltKey(f types.Felt) []byte { return f.Bytes() }

func heightKeyBytes(h uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], h)
	return b[:]
}

// Close releases the underlying engine's resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Close()
}

// AddTransaction persists a transaction under its content-addressed hash.
func (s *Store) AddTransaction(tx types.Transaction) (err error) {
	defer func() { s.observe("add_transaction", err) }()
	v, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("store: marshal transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.AddTransaction(feltKey(tx.TransactionHash), v); err != nil {
		return fmt.Errorf("store: add transaction: %w", err)
	}
	return nil
}

// GetTransaction returns (tx, true, nil) if present, (zero, false, nil) if
// absent, or a structured error on backend failure.
func (s *Store) GetTransaction(hash types.Felt) (tx types.Transaction, found bool, err error) {
	defer func() { s.observe("get_transaction", err) }()
	s.mu.Lock()
	v, err := s.engine.GetTransaction(feltKey(hash))
	s.mu.Unlock()
	if err == storeng.ErrNotFound {
		return types.Transaction{}, false, nil
	}
	if err != nil {
		return types.Transaction{}, false, fmt.Errorf("store: get transaction: %w", err)
	}
	if err := json.Unmarshal(v, &tx); err != nil {
		return types.Transaction{}, false, fmt.Errorf("store: unmarshal transaction: %w", err)
	}
	return tx, true, nil
}

// AddBlock persists a sealed block under both its hash and height indexes.
// It does not itself advance the height counter: callers are responsible
// for calling SetHeight once both block and receipts are durable, so that
// a reader never observes a height whose block write hasn't completed.
func (s *Store) AddBlock(block types.BlockWithTxs) (err error) {
	defer func() { s.observe("add_block", err) }()
	wrapped := types.NewSealedBlock(block)
	v, err := json.Marshal(wrapped)
	if err != nil {
		return fmt.Errorf("store: marshal block: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.AddBlock(feltKey(block.BlockHash), heightKeyBytes(block.BlockNumber), v); err != nil {
		return fmt.Errorf("store: add block: %w", err)
	}
	return nil
}

func decodeBlock(v []byte) (types.MaybePendingBlockWithTxs, error) {
	var m types.MaybePendingBlockWithTxs
	if err := json.Unmarshal(v, &m); err != nil {
		return types.MaybePendingBlockWithTxs{}, fmt.Errorf("store: unmarshal block: %w", err)
	}
	return m, nil
}

// GetBlockByHash looks up a block by its hash.
func (s *Store) GetBlockByHash(hash types.Felt) (m types.MaybePendingBlockWithTxs, found bool, err error) {
	defer func() { s.observe("get_block_by_hash", err) }()
	s.mu.Lock()
	v, err := s.engine.GetBlockByHash(feltKey(hash))
	s.mu.Unlock()
	if err == storeng.ErrNotFound {
		return types.MaybePendingBlockWithTxs{}, false, nil
	}
	if err != nil {
		return types.MaybePendingBlockWithTxs{}, false, fmt.Errorf("store: get block by hash: %w", err)
	}
	m, err = decodeBlock(v)
	if err != nil {
		return types.MaybePendingBlockWithTxs{}, false, err
	}
	return m, true, nil
}

// GetBlockByHeight looks up a block by height. Height 0 aliases to height
// 1 (the first non-genesis block) so that queries against a fresh chain
// are well-defined before any block has been sealed.
func (s *Store) GetBlockByHeight(height uint64) (m types.MaybePendingBlockWithTxs, found bool, err error) {
	defer func() { s.observe("get_block_by_height", err) }()
	if height == 0 {
		height = 1
	}
	s.mu.Lock()
	v, err := s.engine.GetBlockByHeight(heightKeyBytes(height))
	s.mu.Unlock()
	if err == storeng.ErrNotFound {
		return types.MaybePendingBlockWithTxs{}, false, nil
	}
	if err != nil {
		return types.MaybePendingBlockWithTxs{}, false, fmt.Errorf("store: get block by height: %w", err)
	}
	m, err = decodeBlock(v)
	if err != nil {
		return types.MaybePendingBlockWithTxs{}, false, err
	}
	return m, true, nil
}

// Latest returns the block at the current height counter.
func (s *Store) Latest() (types.MaybePendingBlockWithTxs, bool, error) {
	h, err := s.GetHeight()
	if err != nil {
		return types.MaybePendingBlockWithTxs{}, false, err
	}
	return s.GetBlockByHeight(h)
}

// AddReceipt persists a receipt under its transaction's hash.
func (s *Store) AddReceipt(r types.InvokeTransactionReceipt) (err error) {
	defer func() { s.observe("add_receipt", err) }()
	wrapped := types.NewSealedReceipt(r)
	v, err := json.Marshal(wrapped)
	if err != nil {
		return fmt.Errorf("store: marshal receipt: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.AddReceipt(feltKey(r.TransactionHash), v); err != nil {
		return fmt.Errorf("store: add receipt: %w", err)
	}
	return nil
}

// GetReceipt looks up a receipt by its transaction's hash.
func (s *Store) GetReceipt(hash types.Felt) (m types.MaybePendingTransactionReceipt, found bool, err error) {
	defer func() { s.observe("get_receipt", err) }()
	s.mu.Lock()
	v, err := s.engine.GetReceipt(feltKey(hash))
	s.mu.Unlock()
	if err == storeng.ErrNotFound {
		return types.MaybePendingTransactionReceipt{}, false, nil
	}
	if err != nil {
		return types.MaybePendingTransactionReceipt{}, false, fmt.Errorf("store: get receipt: %w", err)
	}
	if err := json.Unmarshal(v, &m); err != nil {
		return types.MaybePendingTransactionReceipt{}, false, fmt.Errorf("store: unmarshal receipt: %w", err)
	}
	return m, true, nil
}

// SetValue persists an arbitrary META value (currently only "height" is
// used by this system, but the operation is generic).
func (s *Store) SetValue(key string, value []byte) (err error) {
	defer func() { s.observe("set_value", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.SetValue([]byte(key), value); err != nil {
		return fmt.Errorf("store: set value %q: %w", key, err)
	}
	return nil
}

// GetValue reads an arbitrary META value.
func (s *Store) GetValue(key string) (v []byte, found bool, err error) {
	defer func() { s.observe("get_value", err) }()
	s.mu.Lock()
	v, err = s.engine.GetValue([]byte(key))
	s.mu.Unlock()
	if err == storeng.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get value %q: %w", key, err)
	}
	return v, true, nil
}

// SetHeight writes the META["height"] counter.
func (s *Store) SetHeight(h uint64) error {
	return s.SetValue(heightKey, heightKeyBytes(h))
}

// GetHeight reads the META["height"] counter. New() always establishes it
// at open time, so callers may treat a "not found" here as an error
// rather than a legitimate empty-chain state.
func (s *Store) GetHeight() (uint64, error) {
	v, ok, err := s.GetValue(heightKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, storeng.ErrNotFound
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("store: malformed height value (%d bytes)", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}
