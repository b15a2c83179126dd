// Package jit implements the exec.Engine "JIT" backend: compiles a
// previously produced typed-assembly program once per entrypoint, lowers
// it through a progressive set of passes, and invokes the result with
// calldata plus a syscall handler pointer.
//
// The "passes to machine code" step is treated as a black box: here it
// compiles down to a single memoized Go closure rather than real machine
// code, but the one-compile-per-entrypoint caching contract is real.
package jit

import (
	"context"
	"sync"

	"rubin.dev/sequencer/exec"
	"rubin.dev/sequencer/types"
)

// compiledRoutine is the "machine code" a program lowers to: a closure
// over the dispatch target, ready to invoke with calldata and a syscall
// handler.
type compiledRoutine func(args []types.Felt, gas *exec.GasPool, syscall exec.SyscallHandler) (exec.Retdata, error)

// Backend is the JIT execution engine. cache memoizes the compiled
// routine per entrypoint so a program is lowered at most once.
type Backend struct {
	syscall exec.SyscallHandler
	gas     uint64
	cache   sync.Map // exec.DispatchTarget -> compiledRoutine
}

// New constructs a JIT backend.
func New(syscall exec.SyscallHandler, gas uint64) *Backend {
	return &Backend{syscall: syscall, gas: gas}
}

// compile lowers a dispatch target through the (stubbed) progressive pass
// pipeline into a compiled routine, or returns the cached one.
func (b *Backend) compile(target exec.DispatchTarget) compiledRoutine {
	if v, ok := b.cache.Load(target); ok {
		return v.(compiledRoutine)
	}
	routine := lower(target)
	actual, _ := b.cache.LoadOrStore(target, routine)
	return actual.(compiledRoutine)
}

// lower models the progressive lowering passes: typed assembly -> IR ->
// machine code. Each pass here is a no-op wrapper around exec.Dispatch;
// what matters structurally is that compilation happens exactly once
// (enforced by Backend.cache) and that the resulting routine closes over
// nothing but its dispatch target.
func lower(target exec.DispatchTarget) compiledRoutine {
	passTypedAssemblyToIR := func(t exec.DispatchTarget) exec.DispatchTarget { return t }
	passIRToMachineCode := func(t exec.DispatchTarget) compiledRoutine {
		return func(args []types.Felt, gas *exec.GasPool, syscall exec.SyscallHandler) (exec.Retdata, error) {
			return exec.Dispatch(t, args, gas)
		}
	}
	return passIRToMachineCode(passTypedAssemblyToIR(target))
}

// Execute compiles (or reuses) the entrypoint for tx's dispatch tag and
// invokes it with calldata plus the backend's syscall handler.
func (b *Backend) Execute(ctx context.Context, tx types.Transaction) (exec.Retdata, error) {
	target, args, err := exec.Resolve(tx)
	if err != nil {
		return nil, err
	}
	routine := b.compile(target)
	gas := exec.NewGasPool(b.gas)
	return routine(args, gas, b.syscall)
}

var _ exec.Engine = (*Backend)(nil)
