// Package exec is the polymorphic execution engine façade: a uniform
// invoke contract implemented by three VM backends (StateMachine,
// Interpreter, JIT) sharing one dispatch rule, one syscall handler
// contract, and one gas-accounting discipline.
package exec

import (
	"context"
	"fmt"

	"rubin.dev/sequencer/types"
)

// Retdata is the ordered sequence of Felt values a successful invoke
// returns.
type Retdata []types.Felt

// ExecutionError wraps a recoverable execution failure: bad selector,
// gas exhaustion, unknown contract. It is never a panic path — a
// malformed transaction always surfaces as an error, never a crash.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string { return e.Reason }

func execErrf(format string, args ...any) error {
	return &ExecutionError{Reason: fmt.Sprintf(format, args...)}
}

// ErrOutOfGas is returned (wrapped in ExecutionError) when a GasPool is
// exhausted mid-invoke.
var ErrOutOfGas = execErrf("out of gas")

// Engine is the uniform invoke contract implemented by each VM backend as
// a tagged variant rather than through inheritance.
type Engine interface {
	Execute(ctx context.Context, tx types.Transaction) (Retdata, error)
}

// Backend names the three variants selectable at startup.
type Backend string

const (
	BackendStateMachine Backend = "state_machine"
	BackendInterpreter  Backend = "interpreter"
	BackendJIT          Backend = "jit"
)

// DispatchTarget is the routine an InvokeV1 transaction's calldata[0]
// selects.
type DispatchTarget int

const (
	DispatchTargetFibonacci DispatchTarget = iota
	DispatchTargetFactorial
	DispatchTargetERC20Constructor
)

// RegisteredClass is one of the three pre-populated contract classes:
// Fibonacci @ address 0 / class hash [1;32], Factorial @ address 1 /
// class hash [2;32], ERC-20 @ address 2 / class hash [3;32].
type RegisteredClass struct {
	Address   types.Felt
	ClassHash types.Felt
	Target    DispatchTarget
}

func classHashOf(b byte) types.Felt {
	var h types.Felt
	for i := range h {
		h[i] = b
	}
	return h
}

// RegisteredClasses returns the three contract classes every backend
// pre-populates at startup.
func RegisteredClasses() []RegisteredClass {
	return []RegisteredClass{
		{Address: types.FeltFromUint64(0), ClassHash: classHashOf(1), Target: DispatchTargetFibonacci},
		{Address: types.FeltFromUint64(1), ClassHash: classHashOf(2), Target: DispatchTargetFactorial},
		{Address: types.FeltFromUint64(2), ClassHash: classHashOf(3), Target: DispatchTargetERC20Constructor},
	}
}

// Resolve maps an InvokeV1 transaction's dispatch tag to a target and its
// argument calldata. Any other tag value is rejected as "invalid
// calldata".
func Resolve(tx types.Transaction) (DispatchTarget, []types.Felt, error) {
	if !tx.IsInvokeV1() {
		return 0, nil, types.ErrUnsupportedTransaction
	}
	tag, err := tx.DispatchTag()
	if err != nil {
		return 0, nil, execErrf("invalid calldata: %v", err)
	}
	switch tag {
	case types.DispatchFibonacci:
		return DispatchTargetFibonacci, tx.Args(), nil
	case types.DispatchFactorial:
		return DispatchTargetFactorial, tx.Args(), nil
	case types.DispatchERC20Ctor:
		return DispatchTargetERC20Constructor, tx.Args(), nil
	default:
		return 0, nil, execErrf("invalid calldata: unknown dispatch tag %d", tag)
	}
}

// ToU32Digits encodes a non-negative integer as 8 little-endian u32-sized
// Felt "digits", padded with trailing zeros — the VM calldata adapter
// convention: encode(10) = [10,0,0,0,0,0,0,0].
func ToU32Digits(n uint64) [8]types.Felt {
	var out [8]types.Felt
	for i := 0; i < 8; i++ {
		out[i] = types.FeltFromUint64(n & 0xffffffff)
		n >>= 32
	}
	return out
}
