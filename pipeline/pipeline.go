// Package pipeline implements the commit-to-execution pipeline: it drains
// committed consensus blocks, decodes their payloads into transactions,
// drives each through the execution engine, and assembles sealed blocks
// and receipts via blockbuilder + the store façade.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rubin.dev/sequencer/blockbuilder"
	"rubin.dev/sequencer/exec"
	"rubin.dev/sequencer/metrics"
	"rubin.dev/sequencer/store"
	"rubin.dev/sequencer/types"
	"rubin.dev/sequencer/wire"
)

// CommitChannelCapacity is the bounded channel capacity: senders block
// when full, so a committed block is never dropped.
const CommitChannelCapacity = 1000

// ConsensusBlock is the unit delivered by the (external, out-of-scope)
// consensus engine: an ordered list of payload digests under a monotonic
// round number.
type ConsensusBlock struct {
	Round          uint64
	PayloadDigests []types.Felt
}

// MempoolStore is the narrow interface the pipeline needs against the
// mempool to resolve a payload digest to batch bytes and evict it once
// its batch's transactions have been processed. It is satisfied by *mempool.Pool, but kept as an
// interface so tests can substitute a fake without a real pool.
type MempoolStore interface {
	GetBatch(digest types.Felt) ([]byte, bool, error)
	Forget(digest types.Felt)
}

// Pipeline is the single cooperative worker: one goroutine draining
// CommitChannel, the closest Go analogue of a single logical pipeline
// task per node.
type Pipeline struct {
	CommitChannel chan ConsensusBlock

	chain    *store.Store
	mempool  MempoolStore
	engine   exec.Engine
	log      *zap.Logger
	now      func() time.Time
	benchmarking bool

	lastRecordedRound uint64
}

// New constructs a Pipeline wired to the given chain store, mempool
// reader, execution engine and logger.
func New(chain *store.Store, mempool MempoolStore, engine exec.Engine, log *zap.Logger, now func() time.Time, benchmarking bool) *Pipeline {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		CommitChannel: make(chan ConsensusBlock, CommitChannelCapacity),
		chain:         chain,
		mempool:       mempool,
		engine:        engine,
		log:           log,
		now:           now,
		benchmarking:  benchmarking,
	}
}

// Run drains CommitChannel until ctx is canceled or the channel is
// closed: a cooperative shutdown where the sender dropping the channel
// lets the pipeline drain whatever remains before returning.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-p.CommitChannel:
			if !ok {
				return nil
			}
			p.analyzeBlock(ctx, block)
		}
	}
}

// analyzeBlock is the per-round analysis step: resolve payload digests,
// decode batches, execute InvokeV1 transactions, and seal a block subject
// to the empty-block policy.
func (p *Pipeline) analyzeBlock(ctx context.Context, block ConsensusBlock) {
	var roundTxs []types.Transaction

	for _, digest := range block.PayloadDigests {
		batchBytes, ok, err := p.mempool.GetBatch(digest)
		if err != nil {
			p.log.Error("pipeline: read batch failed", zap.Uint64("round", block.Round), zap.Error(err))
			continue
		}
		if !ok {
			p.log.Warn("pipeline: payload digest not found", zap.Uint64("round", block.Round), zap.String("digest", digest.Hex()))
			continue
		}

		var msg types.MempoolMessage
		if err := json.Unmarshal(batchBytes, &msg); err != nil {
			p.log.Error("pipeline: decode batch failed", zap.Uint64("round", block.Round), zap.Error(err))
			continue
		}

		if !msg.IsBatch() {
			p.log.Info("pipeline: ignoring batch request", zap.Uint64("round", block.Round))
			continue
		}

		for _, framed := range msg.Batch {
			tx, err := p.decodeFramedTransaction(framed)
			if err != nil {
				p.log.Error("pipeline: decode transaction failed", zap.Uint64("round", block.Round), zap.Error(err))
				continue
			}

			if !tx.IsInvokeV1() {
				p.log.Info("pipeline: todo: unsupported transaction variant",
					zap.Uint64("round", block.Round), zap.String("kind", string(tx.Kind)))
				roundTxs = append(roundTxs, tx)
				continue
			}

			retdata, err := p.engine.Execute(ctx, tx)
			if err != nil {
				metrics.ExecutionOutcomes.WithLabelValues("error").Inc()
				p.log.Error("pipeline: execution failed",
					zap.String("tx_hash", tx.TransactionHash.Hex()), zap.Error(err))
				continue
			}
			metrics.ExecutionOutcomes.WithLabelValues("success").Inc()
			p.log.Info("pipeline: execution succeeded",
				zap.String("tx_hash", tx.TransactionHash.Hex()), zap.Any("retdata", retdata))

			if err := p.chain.AddTransaction(tx); err != nil {
				p.log.Error("pipeline: persist transaction failed",
					zap.String("tx_hash", tx.TransactionHash.Hex()), zap.Error(err))
				continue
			}
			roundTxs = append(roundTxs, tx)
		}
		p.mempool.Forget(digest)
	}

	p.sealRound(block.Round, roundTxs)
}

// decodeFramedTransaction strips the benchmarking header (when enabled)
// and decodes the remainder as a Transaction.
func (p *Pipeline) decodeFramedTransaction(framed []byte) (types.Transaction, error) {
	payload, err := wire.StripHeader(p.benchmarking, framed)
	if err != nil {
		return types.Transaction{}, err
	}
	var tx types.Transaction
	if err := json.Unmarshal(payload, &tx); err != nil {
		return types.Transaction{}, fmt.Errorf("pipeline: decode transaction: %w", err)
	}
	return tx, nil
}

// sealRound applies the empty-block policy and, when a block is sealed,
// persists it, its receipts, and advances the height counter and
// last-recorded-round marker.
func (p *Pipeline) sealRound(round uint64, txs []types.Transaction) {
	if len(txs) == 0 && !blockbuilder.ShouldSealEmptyBlock(round, p.lastRecordedRound) {
		return
	}

	height, err := p.chain.GetHeight()
	if err != nil {
		p.log.Error("pipeline: read height failed", zap.Error(err))
		return
	}
	var previous *types.BlockWithTxs
	if height > 0 {
		maybe, ok, err := p.chain.GetBlockByHeight(height)
		if err != nil {
			p.log.Error("pipeline: read previous block failed", zap.Error(err))
			return
		}
		if ok {
			b, err := maybe.AsBlock()
			if err == nil {
				previous = &b
			}
		}
	}

	clock := func() uint64 { return uint64(p.now().Unix()) }
	block, receipts := blockbuilder.Build(height, previous, txs, clock)

	if err := p.chain.AddBlock(block); err != nil {
		p.log.Error("pipeline: persist block failed", zap.Uint64("height", block.BlockNumber), zap.Error(err))
		return
	}
	for _, r := range receipts {
		if err := p.chain.AddReceipt(r); err != nil {
			p.log.Error("pipeline: persist receipt failed", zap.String("tx_hash", r.TransactionHash.Hex()), zap.Error(err))
		}
	}
	if err := p.chain.SetHeight(block.BlockNumber); err != nil {
		p.log.Error("pipeline: advance height failed", zap.Error(err))
		return
	}
	metrics.BlocksSealed.Inc()
	p.lastRecordedRound = round
	p.log.Info("pipeline: sealed block",
		zap.Uint64("height", block.BlockNumber), zap.Int("tx_count", len(txs)), zap.Uint64("round", round))
}
