// Package mempool holds batches of framed, not-yet-sequenced transaction
// bytes keyed by their consensus payload digest: an inventory-vector
// style lookup-by-hash, serving the commit pipeline.
package mempool

import (
	"sync"

	"rubin.dev/sequencer/types"
)

// Pool is a thread-safe digest -> batch-bytes cache. Submitting a batch
// under a digest that already has a stored batch replaces it: mempool
// batches are ephemeral relative to the chain they feed, so last write
// wins rather than being rejected.
type Pool struct {
	mu      sync.RWMutex
	batches map[types.Felt][]byte
}

// New constructs an empty pool.
func New() *Pool {
	return &Pool{batches: make(map[types.Felt][]byte)}
}

// Submit stores batch under digest, making it resolvable by the pipeline
// once consensus references that digest in a round.
func (p *Pool) Submit(digest types.Felt, batch []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches[digest] = batch
}

// Forget evicts a digest. The pipeline calls it once it has processed the
// transactions of the batch stored under that digest.
func (p *Pool) Forget(digest types.Felt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.batches, digest)
}

// GetBatch implements pipeline.MempoolStore: it looks up the raw batch
// bytes submitted under digest.
func (p *Pool) GetBatch(digest types.Felt) ([]byte, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.batches[digest]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Len reports how many digests are currently pending resolution.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.batches)
}
