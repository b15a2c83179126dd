// Package pebbledb implements storeng.Engine as five independent
// github.com/cockroachdb/pebble LSM instances, one per index, rooted at
// five on-disk directories (<path>.transactions.db, <path>.blocks1.db,
// <path>.blocks2.db, <path>.values.db, <path>.transaction_receipts.db).
//
// pebble.DB is itself safe for concurrent goroutine use, but this backend
// deliberately routes every operation through a single owner goroutine
// reached via typed commands on a logically unbounded queue, each
// carrying a zero-capacity reply channel — preserving write-once
// enforcement as a property of the owner's serialized command processing
// rather than leaning on pebble's own thread-safety.
package pebbledb

import (
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"

	"rubin.dev/sequencer/storeng"
)

type dbSelector int

const (
	selTransactions dbSelector = iota
	selBlocksByHash
	selBlocksByHeight
	selReceipts
	selValues
	numSelectors
)

type opKind int

const (
	opPut opKind = iota
	opGet
)

type commandResult struct {
	value []byte
	err   error
}

type command struct {
	op    opKind
	db    dbSelector
	key   []byte
	value []byte
	reply chan commandResult
}

// Engine is the pebble-backed "LSM" backend.
type Engine struct {
	dbs   [numSelectors]*pebble.DB
	queue *unboundedQueue
	done  chan struct{}
}

// Open opens the five pebble instances rooted at basePath and starts the
// owner goroutine.
func Open(basePath string) (*Engine, error) {
	suffixes := [numSelectors]string{
		selTransactions:    ".transactions.db",
		selBlocksByHash:    ".blocks1.db",
		selBlocksByHeight:  ".blocks2.db",
		selReceipts:        ".transaction_receipts.db",
		selValues:          ".values.db",
	}
	e := &Engine{queue: newUnboundedQueue(), done: make(chan struct{})}
	for sel, suffix := range suffixes {
		path := basePath + suffix
		if err := os.MkdirAll(path, 0o750); err != nil {
			e.closeOpened(dbSelector(sel))
			return nil, fmt.Errorf("pebbledb: mkdir %s: %w", path, err)
		}
		db, err := pebble.Open(path, &pebble.Options{})
		if err != nil {
			e.closeOpened(dbSelector(sel))
			return nil, fmt.Errorf("pebbledb: open %s: %w", path, err)
		}
		e.dbs[sel] = db
	}
	go e.run()
	return e, nil
}

func (e *Engine) closeOpened(upTo dbSelector) {
	for i := dbSelector(0); i < upTo; i++ {
		if e.dbs[i] != nil {
			_ = e.dbs[i].Close()
		}
	}
}

// run is the dedicated owner goroutine: it is the only goroutine that
// ever touches e.dbs directly.
func (e *Engine) run() {
	defer close(e.done)
	for {
		c, ok := e.queue.pop()
		if !ok {
			return
		}
		db := e.dbs[c.db]
		switch c.op {
		case opGet:
			v, closer, err := db.Get(c.key)
			if err == pebble.ErrNotFound {
				c.reply <- commandResult{err: storeng.ErrNotFound}
				continue
			}
			if err != nil {
				c.reply <- commandResult{err: err}
				continue
			}
			out := append([]byte(nil), v...)
			_ = closer.Close()
			c.reply <- commandResult{value: out}
		case opPut:
			c.reply <- commandResult{err: e.put(db, c.db, c.key, c.value)}
		}
	}
}

// put enforces write-once semantics for the transactions index only: a
// duplicate transaction_hash is rejected rather than silently
// overwritten.
func (e *Engine) put(db *pebble.DB, sel dbSelector, key, value []byte) error {
	if sel == selTransactions {
		_, closer, err := db.Get(key)
		if err == nil {
			_ = closer.Close()
			return storeng.ErrDuplicateKey
		}
		if err != pebble.ErrNotFound {
			return err
		}
	}
	return db.Set(key, value, pebble.Sync)
}

func (e *Engine) do(sel dbSelector, op opKind, key, value []byte) ([]byte, error) {
	reply := make(chan commandResult) // zero-capacity: the caller blocks for the reply
	e.queue.push(command{op: op, db: sel, key: key, value: value, reply: reply})
	res := <-reply
	return res.value, res.err
}

func (e *Engine) AddTransaction(key, value []byte) error {
	_, err := e.do(selTransactions, opPut, key, value)
	return err
}

func (e *Engine) GetTransaction(key []byte) ([]byte, error) {
	return e.do(selTransactions, opGet, key, nil)
}

// AddBlock performs both index writes via the owner goroutine. If the
// by-hash write succeeds but the by-height write fails, the composite
// error is returned and the two indexes may briefly disagree — this
// backend does not wrap both writes in one atomic transaction the way
// the bbolt backend does.
func (e *Engine) AddBlock(hashKey, heightKey, value []byte) error {
	if _, err := e.do(selBlocksByHash, opPut, hashKey, value); err != nil {
		return fmt.Errorf("pebbledb: add block by-hash: %w", err)
	}
	if _, err := e.do(selBlocksByHeight, opPut, heightKey, value); err != nil {
		return fmt.Errorf("pebbledb: add block by-height: %w", err)
	}
	return nil
}

func (e *Engine) GetBlockByHash(key []byte) ([]byte, error) {
	return e.do(selBlocksByHash, opGet, key, nil)
}

func (e *Engine) GetBlockByHeight(key []byte) ([]byte, error) {
	return e.do(selBlocksByHeight, opGet, key, nil)
}

func (e *Engine) AddReceipt(key, value []byte) error {
	_, err := e.do(selReceipts, opPut, key, value)
	return err
}

func (e *Engine) GetReceipt(key []byte) ([]byte, error) {
	return e.do(selReceipts, opGet, key, nil)
}

func (e *Engine) SetValue(key, value []byte) error {
	_, err := e.do(selValues, opPut, key, value)
	return err
}

func (e *Engine) GetValue(key []byte) ([]byte, error) {
	return e.do(selValues, opGet, key, nil)
}

// Close stops the owner goroutine and closes all five pebble instances.
func (e *Engine) Close() error {
	e.queue.close()
	<-e.done
	var firstErr error
	for _, db := range e.dbs {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ storeng.Engine = (*Engine)(nil)
