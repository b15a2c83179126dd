// Package statemachine implements the exec.Engine "StateMachine" backend:
// an in-memory state reader mapping contract_address -> class_hash ->
// nonce, a contract-class cache, and the three pre-populated registered
// classes, invoked by simulating an invocation against the state machine.
// The BlockContext given to New is stored on the backend; Execute does not
// consult it.
package statemachine

import (
	"context"

	"rubin.dev/sequencer/exec"
	"rubin.dev/sequencer/types"
)

// BlockContext carries the fee limit and chain id the backend is
// constructed with. Neither value affects the result of an invoke.
type BlockContext struct {
	FeeLimit types.Felt
	ChainID  types.Felt
}

// contractState is the nonce/class pairing for one deployed address.
type contractState struct {
	classHash types.Felt
	nonce     types.Felt
}

// Backend is the StateMachine execution engine.
type Backend struct {
	classes map[types.Felt]exec.RegisteredClass // by class hash
	state   map[types.Felt]contractState        // by contract address
	ctx     BlockContext
	syscall exec.SyscallHandler
	gas     uint64
}

// New constructs a StateMachine backend with the three registered classes
// pre-populated.
func New(ctx BlockContext, syscall exec.SyscallHandler, gas uint64) *Backend {
	b := &Backend{
		classes: make(map[types.Felt]exec.RegisteredClass),
		state:   make(map[types.Felt]contractState),
		ctx:     ctx,
		syscall: syscall,
		gas:     gas,
	}
	for _, rc := range exec.RegisteredClasses() {
		b.classes[rc.ClassHash] = rc
		b.state[rc.Address] = contractState{classHash: rc.ClassHash}
	}
	return b
}

// Execute runs one InvokeV1 transaction against the simulated state
// machine, extracting the innermost call's retdata on success.
func (b *Backend) Execute(ctx context.Context, tx types.Transaction) (exec.Retdata, error) {
	target, args, err := exec.Resolve(tx)
	if err != nil {
		return nil, contractNotDeployedIfUnresolved(err)
	}
	deployed := b.resolveDeployedClass(target)
	if deployed == nil {
		return nil, &exec.ExecutionError{Reason: "contract not deployed"}
	}
	gas := exec.NewGasPool(b.gas)
	rd, err := exec.Dispatch(target, args, gas)
	if err != nil {
		return nil, err
	}
	return rd, nil
}

// resolveDeployedClass finds the registered class implementing target,
// simulating the address -> class_hash -> routine lookup the real state
// machine performs.
func (b *Backend) resolveDeployedClass(target exec.DispatchTarget) *exec.RegisteredClass {
	for _, rc := range exec.RegisteredClasses() {
		if rc.Target == target {
			if _, ok := b.state[rc.Address]; !ok {
				return nil
			}
			cp := rc
			return &cp
		}
	}
	return nil
}

func contractNotDeployedIfUnresolved(err error) error {
	if err == types.ErrUnsupportedTransaction {
		return err
	}
	// An out-of-range dispatch tag could be framed as "invalid calldata"
	// (it is, for Resolve), but this backend resolves dispatch tags
	// through a simulated address lookup, so it surfaces the
	// address-resolution framing instead.
	return &exec.ExecutionError{Reason: "contract not deployed"}
}

var _ exec.Engine = (*Backend)(nil)
