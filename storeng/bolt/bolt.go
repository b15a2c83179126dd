// Package bolt implements storeng.Engine on go.etcd.io/bbolt: five
// buckets in one on-disk file, opened at construction time, with
// synchronous per-call transactions, one bucket per index.
package bolt

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"rubin.dev/sequencer/storeng"
)

var (
	bucketTransactions   = []byte("transactions")
	bucketBlocksByHash   = []byte("blocks_by_hash")
	bucketBlocksByHeight = []byte("blocks_by_height")
	bucketReceipts       = []byte("transaction_receipts")
	bucketValues         = []byte("values")
)

var allBuckets = [][]byte{
	bucketTransactions,
	bucketBlocksByHash,
	bucketBlocksByHeight,
	bucketReceipts,
	bucketValues,
}

// Engine is the bbolt-backed "B-tree-file" backend.
type Engine struct {
	db *bolt.DB
}

// Open opens (creating if absent) a single bbolt file at path, with all
// five index buckets present.
func Open(path string) (*Engine, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("bolt: create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Engine{db: db}, nil
}

func getFrom(db *bolt.DB, bucket, key []byte) ([]byte, error) {
	var out []byte
	err := db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: get: %w", err)
	}
	if out == nil {
		return nil, storeng.ErrNotFound
	}
	return out, nil
}

func putInto(db *bolt.DB, bucket, key, value []byte) error {
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
}

// AddTransaction overwrites any existing entry for the same key — this
// backend does not enforce write-once semantics.
func (e *Engine) AddTransaction(key, value []byte) error {
	if err := putInto(e.db, bucketTransactions, key, value); err != nil {
		return fmt.Errorf("bolt: add transaction: %w", err)
	}
	return nil
}

func (e *Engine) GetTransaction(key []byte) ([]byte, error) {
	return getFrom(e.db, bucketTransactions, key)
}

// AddBlock writes both the by-hash and by-height indexes inside a single
// bbolt transaction. A failure on either leaves the whole write rolled
// back — stronger than the minimum contract (perform both writes and
// return the composite error if either fails), since bbolt's
// transactional guarantee keeps the two indexes consistent even in the
// single-engine crash case this backend is exposed to.
func (e *Engine) AddBlock(hashKey, heightKey, value []byte) error {
	err := e.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketBlocksByHash).Put(hashKey, value); err != nil {
			return fmt.Errorf("by-hash: %w", err)
		}
		if err := tx.Bucket(bucketBlocksByHeight).Put(heightKey, value); err != nil {
			return fmt.Errorf("by-height: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt: add block: %w", err)
	}
	return nil
}

func (e *Engine) GetBlockByHash(key []byte) ([]byte, error) {
	return getFrom(e.db, bucketBlocksByHash, key)
}

func (e *Engine) GetBlockByHeight(key []byte) ([]byte, error) {
	return getFrom(e.db, bucketBlocksByHeight, key)
}

func (e *Engine) AddReceipt(key, value []byte) error {
	if err := putInto(e.db, bucketReceipts, key, value); err != nil {
		return fmt.Errorf("bolt: add receipt: %w", err)
	}
	return nil
}

func (e *Engine) GetReceipt(key []byte) ([]byte, error) {
	return getFrom(e.db, bucketReceipts, key)
}

func (e *Engine) SetValue(key, value []byte) error {
	if err := putInto(e.db, bucketValues, key, value); err != nil {
		return fmt.Errorf("bolt: set value: %w", err)
	}
	return nil
}

func (e *Engine) GetValue(key []byte) ([]byte, error) {
	return getFrom(e.db, bucketValues, key)
}

func (e *Engine) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

var _ storeng.Engine = (*Engine)(nil)
