package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"rubin.dev/sequencer/exec"
	"rubin.dev/sequencer/store"
	"rubin.dev/sequencer/storeng/memory"
	"rubin.dev/sequencer/types"
)

type fakeMempool struct {
	mu       sync.Mutex
	batches  map[types.Felt][]byte
	forgotten []types.Felt
}

func newFakeMempool() *fakeMempool {
	return &fakeMempool{batches: make(map[types.Felt][]byte)}
}

func (f *fakeMempool) submit(digest types.Felt, msg types.MempoolMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[digest] = b
}

func (f *fakeMempool) GetBatch(digest types.Felt) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.batches[digest]
	return v, ok, nil
}

func (f *fakeMempool) Forget(digest types.Felt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, digest)
}

type fakeEngine struct {
	retdata exec.Retdata
	err     error
}

func (f *fakeEngine) Execute(ctx context.Context, tx types.Transaction) (exec.Retdata, error) {
	return f.retdata, f.err
}

func newTestChain(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(memory.New(), "memory")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

func invokeTx(hash uint64) types.Transaction {
	return types.Transaction{
		Kind:            types.TxKindInvokeV1,
		TransactionHash: types.FeltFromUint64(hash),
		Calldata:        []types.Felt{types.FeltFromUint64(types.DispatchFibonacci), types.FeltFromUint64(10)},
	}
}

func fixedNow(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestAnalyzeBlockExecutesPersistsAndSealsBlock(t *testing.T) {
	chain := newTestChain(t)
	mp := newFakeMempool()
	tx := invokeTx(1)
	digest := types.FeltFromUint64(100)
	mp.submit(digest, types.NewBatch([][]byte{mustJSON(t, tx)}))

	p := New(chain, mp, &fakeEngine{retdata: exec.Retdata{types.FeltFromUint64(55)}}, nil, fixedNow(time.Unix(1000, 0)), false)
	p.analyzeBlock(context.Background(), ConsensusBlock{Round: 1, PayloadDigests: []types.Felt{digest}})

	height, err := chain.GetHeight()
	if err != nil || height != 1 {
		t.Fatalf("GetHeight = (%d, %v), want (1, nil)", height, err)
	}
	if _, found, err := chain.GetTransaction(tx.TransactionHash); err != nil || !found {
		t.Fatalf("GetTransaction = (found=%v, err=%v)", found, err)
	}
	if _, found, err := chain.GetReceipt(tx.TransactionHash); err != nil || !found {
		t.Fatalf("GetReceipt = (found=%v, err=%v)", found, err)
	}
	if len(mp.forgotten) != 1 || mp.forgotten[0] != digest {
		t.Fatalf("forgotten digests = %v, want [%v]", mp.forgotten, digest)
	}
}

func TestAnalyzeBlockSkipsEmptyRoundBelowIdleGap(t *testing.T) {
	chain := newTestChain(t)
	mp := newFakeMempool()
	p := New(chain, mp, &fakeEngine{}, nil, fixedNow(time.Unix(1, 0)), false)

	p.analyzeBlock(context.Background(), ConsensusBlock{Round: 10})

	height, err := chain.GetHeight()
	if err != nil || height != 0 {
		t.Fatalf("GetHeight = (%d, %v), want (0, nil) for suppressed empty round", height, err)
	}
}

func TestAnalyzeBlockSealsEmptyRoundPastIdleGap(t *testing.T) {
	chain := newTestChain(t)
	mp := newFakeMempool()
	p := New(chain, mp, &fakeEngine{}, nil, fixedNow(time.Unix(1, 0)), false)

	p.analyzeBlock(context.Background(), ConsensusBlock{Round: 1501})

	height, err := chain.GetHeight()
	if err != nil || height != 1 {
		t.Fatalf("GetHeight = (%d, %v), want (1, nil) once idle gap exceeded", height, err)
	}
}

func TestAnalyzeBlockChainsParentHashAcrossRounds(t *testing.T) {
	chain := newTestChain(t)
	mp := newFakeMempool()
	engine := &fakeEngine{retdata: exec.Retdata{types.FeltFromUint64(1)}}
	p := New(chain, mp, engine, nil, fixedNow(time.Unix(1, 0)), false)

	tx1 := invokeTx(1)
	d1 := types.FeltFromUint64(11)
	mp.submit(d1, types.NewBatch([][]byte{mustJSON(t, tx1)}))
	p.analyzeBlock(context.Background(), ConsensusBlock{Round: 1, PayloadDigests: []types.Felt{d1}})

	first, found, err := chain.GetBlockByHeight(1)
	if err != nil || !found {
		t.Fatalf("GetBlockByHeight(1) = (found=%v, err=%v)", found, err)
	}
	firstBlock, err := first.AsBlock()
	if err != nil {
		t.Fatalf("AsBlock: %v", err)
	}

	tx2 := invokeTx(2)
	d2 := types.FeltFromUint64(12)
	mp.submit(d2, types.NewBatch([][]byte{mustJSON(t, tx2)}))
	p.analyzeBlock(context.Background(), ConsensusBlock{Round: 2, PayloadDigests: []types.Felt{d2}})

	second, found, err := chain.GetBlockByHeight(2)
	if err != nil || !found {
		t.Fatalf("GetBlockByHeight(2) = (found=%v, err=%v)", found, err)
	}
	secondBlock, err := second.AsBlock()
	if err != nil {
		t.Fatalf("AsBlock: %v", err)
	}
	if secondBlock.ParentHash.Uint64() != firstBlock.BlockHash.Uint64() {
		t.Fatalf("second.ParentHash = %v, want %v", secondBlock.ParentHash, firstBlock.BlockHash)
	}
}

func TestAnalyzeBlockSkipsExecutionFailureButContinuesRound(t *testing.T) {
	chain := newTestChain(t)
	mp := newFakeMempool()
	failing := invokeTx(1)
	succeeding := invokeTx(2)
	digest := types.FeltFromUint64(50)
	mp.submit(digest, types.NewBatch([][]byte{mustJSON(t, failing), mustJSON(t, succeeding)}))

	calls := 0
	engine := &fakeEngineFunc{fn: func(tx types.Transaction) (exec.Retdata, error) {
		calls++
		if tx.TransactionHash.Uint64() == failing.TransactionHash.Uint64() {
			return nil, assertErr
		}
		return exec.Retdata{types.FeltFromUint64(1)}, nil
	}}
	p := New(chain, mp, engine, nil, fixedNow(time.Unix(1, 0)), false)
	p.analyzeBlock(context.Background(), ConsensusBlock{Round: 1, PayloadDigests: []types.Felt{digest}})

	if calls != 2 {
		t.Fatalf("engine called %d times, want 2", calls)
	}
	if _, found, _ := chain.GetTransaction(failing.TransactionHash); found {
		t.Fatal("failing transaction should not have been persisted")
	}
	if _, found, _ := chain.GetTransaction(succeeding.TransactionHash); !found {
		t.Fatal("succeeding transaction should have been persisted")
	}
}

type fakeEngineFunc struct {
	fn func(tx types.Transaction) (exec.Retdata, error)
}

func (f *fakeEngineFunc) Execute(ctx context.Context, tx types.Transaction) (exec.Retdata, error) {
	return f.fn(tx)
}

var assertErr = &exec.ExecutionError{Reason: "boom"}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return b
}
