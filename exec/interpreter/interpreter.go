// Package interpreter implements the exec.Engine "Interpreter" backend:
// it runs the known entrypoint's routine with an initial gas pool of
// u64::MAX, lays calldata followed by retdata out in a fresh memory
// segment, and reports retdata through [retdata_start, retdata_end)
// pointers into that segment. No bytecode is loaded and no syscall
// segment or builtin costs are initialized; the routine itself is
// exec.Dispatch.
package interpreter

import (
	"context"
	"fmt"

	"rubin.dev/sequencer/exec"
	"rubin.dev/sequencer/types"
)

// program is a stand-in for pre-compiled Cairo bytecode: the VM-internal
// instruction format is treated as a black box, so this is just the
// entrypoint's dispatch target and a memory-segment runner.
type program struct {
	target exec.DispatchTarget
}

var entrypoints = map[exec.DispatchTarget]program{
	exec.DispatchTargetFibonacci:        {target: exec.DispatchTargetFibonacci},
	exec.DispatchTargetFactorial:        {target: exec.DispatchTargetFactorial},
	exec.DispatchTargetERC20Constructor: {target: exec.DispatchTargetERC20Constructor},
}

// Backend is the Interpreter execution engine.
type Backend struct {
	syscall exec.SyscallHandler
}

// New constructs an Interpreter backend.
func New(syscall exec.SyscallHandler) *Backend {
	return &Backend{syscall: syscall}
}

// returnFrame holds the memory segment and the retdata_start/retdata_end
// pointers into it (positions 3 and 4 of a real VM's 5-value return
// frame); the other three return values are not modeled.
type returnFrame struct {
	segment      []types.Felt
	retdataStart int
	retdataEnd   int
}

func (b *Backend) run(p program, args []types.Felt, gas *exec.GasPool) (returnFrame, error) {
	rd, err := exec.Dispatch(p.target, args, gas)
	if err != nil {
		return returnFrame{}, err
	}
	// Load calldata into a fresh segment, then append retdata and report
	// its [start,end) range the way the real VM's final return-value
	// frame does.
	segment := make([]types.Felt, 0, len(args)+len(rd))
	segment = append(segment, args...)
	start := len(segment)
	segment = append(segment, rd...)
	end := len(segment)
	return returnFrame{segment: segment, retdataStart: start, retdataEnd: end}, nil
}

// Execute loads the entrypoint for tx's dispatch tag, runs it with
// gas = u64::MAX, and extracts retdata from the [retdata_start,
// retdata_end) range of the final return frame.
func (b *Backend) Execute(ctx context.Context, tx types.Transaction) (exec.Retdata, error) {
	target, args, err := exec.Resolve(tx)
	if err != nil {
		return nil, err
	}
	p, ok := entrypoints[target]
	if !ok {
		return nil, fmt.Errorf("interpreter: no compiled entrypoint for target %d", target)
	}
	gas := exec.NewGasPool(exec.InitialGas)
	frame, err := b.run(p, args, gas)
	if err != nil {
		return nil, err
	}
	return exec.Retdata(frame.segment[frame.retdataStart:frame.retdataEnd]), nil
}

var _ exec.Engine = (*Backend)(nil)
