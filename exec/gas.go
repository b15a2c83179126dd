package exec

import "math"

// InitialGas is the starting gas pool every invoke is admitted with in
// the interpreter backend: the full u64 range.
const InitialGas uint64 = math.MaxUint64

// DefaultStateMachineGas is a bounded starting pool for the state-machine
// and JIT backends, which (unlike the interpreter) execute tiny fixed
// routines and don't need the full u64 range to demonstrate exhaustion in
// tests.
const DefaultStateMachineGas uint64 = 1_000_000

// GasPool tracks the remaining gas budget for one invoke. Any backend
// that exhausts it signals a recoverable ExecutionError.
type GasPool struct {
	remaining uint64
}

// NewGasPool creates a pool with the given initial budget.
func NewGasPool(initial uint64) *GasPool {
	return &GasPool{remaining: initial}
}

// Consume deducts n from the pool, returning ErrOutOfGas if that would
// underflow.
func (g *GasPool) Consume(n uint64) error {
	if g.remaining < n {
		g.remaining = 0
		return ErrOutOfGas
	}
	g.remaining -= n
	return nil
}

// Remaining returns the unconsumed budget.
func (g *GasPool) Remaining() uint64 { return g.remaining }
