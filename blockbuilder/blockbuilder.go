// Package blockbuilder implements deterministic block construction from
// a previous height, an optional previous block, and an ordered list of
// executed transactions.
package blockbuilder

import (
	"hash/fnv"

	"rubin.dev/sequencer/types"
)

// Placeholder constants for values a full implementation would compute
// for real: state-root computation and a node-config-sourced sequencer
// address are both out of scope here.
const (
	placeholderNewRoot          uint64 = 938938281
	placeholderSequencerAddress uint64 = 12039102
)

// EmptyBlockRoundGap is the round-gap threshold past which an otherwise
// empty round still produces a block, to preserve liveness under
// prolonged idleness.
const EmptyBlockRoundGap uint64 = 1500

// Clock supplies wall-clock time to the builder. Tests that must
// reproduce a block byte-for-byte inject a fixed Clock.
type Clock func() uint64

// Build assembles a sealed block and its per-transaction receipts from the
// previous chain tip and an ordered list of already-executed transactions.
//
//   - block_number = previousHeight + 1
//   - parent_hash = previousBlock.block_hash if one exists, else 0
//   - status = ACCEPTED_ON_L2
//   - new_root / sequencer_address are fixed placeholders
//   - timestamp comes from now()
//   - block_hash folds {status, parent_hash, height, new_root,
//     sequencer_address, tx...} through a non-cryptographic streaming
//     hasher
func Build(previousHeight uint64, previousBlock *types.BlockWithTxs, txs []types.Transaction, now Clock) (types.BlockWithTxs, []types.InvokeTransactionReceipt) {
	var parentHash types.Felt
	if previousBlock != nil {
		parentHash = previousBlock.BlockHash
	}

	block := types.BlockWithTxs{
		Status:           types.BlockStatusAcceptedOnL2,
		ParentHash:       parentHash,
		BlockNumber:      previousHeight + 1,
		NewRoot:          types.FeltFromUint64(placeholderNewRoot),
		Timestamp:        now(),
		SequencerAddress: types.FeltFromUint64(placeholderSequencerAddress),
		Transactions:     txs,
	}
	block.BlockHash = computeBlockHash(block)

	receipts := make([]types.InvokeTransactionReceipt, 0, len(txs))
	for _, tx := range txs {
		if !tx.IsInvokeV1() {
			// Unsupported variant: stays in the block's transaction list
			// so hashing remains coherent, but gets no receipt.
			continue
		}
		receipts = append(receipts, types.InvokeTransactionReceipt{
			TransactionHash: tx.TransactionHash,
			ActualFee:       tx.MaxFee,
			Status:          types.BlockStatusAcceptedOnL2,
			BlockHash:       block.BlockHash,
			BlockNumber:     block.BlockNumber,
			MessagesSent:    []types.MsgToL1{},
			Events:          []types.Event{},
		})
	}
	return block, receipts
}

// ShouldSealEmptyBlock implements the empty-block suppression policy: a
// round that produced zero transactions only seals a block if the gap
// since the last recorded round exceeds EmptyBlockRoundGap.
func ShouldSealEmptyBlock(currentRound, lastRecordedRound uint64) bool {
	return currentRound-lastRecordedRound > EmptyBlockRoundGap
}

func computeBlockHash(b types.BlockWithTxs) types.Felt {
	h := fnv.New64a()
	write := func(f types.Felt) { _, _ = h.Write(f.Bytes()) }
	_, _ = h.Write([]byte(b.Status))
	write(b.ParentHash)
	var heightBytes [8]byte
	for i := 0; i < 8; i++ {
		heightBytes[i] = byte(b.BlockNumber >> (8 * (7 - i)))
	}
	_, _ = h.Write(heightBytes[:])
	write(b.NewRoot)
	write(b.SequencerAddress)
	for _, tx := range b.Transactions {
		write(tx.TransactionHash)
	}
	return types.FeltFromUint64(h.Sum64())
}
