package main

import (
	"fmt"
	"path/filepath"

	"rubin.dev/sequencer/config"
	"rubin.dev/sequencer/exec"
	"rubin.dev/sequencer/exec/interpreter"
	"rubin.dev/sequencer/exec/jit"
	"rubin.dev/sequencer/exec/statemachine"
	"rubin.dev/sequencer/storeng"
	"rubin.dev/sequencer/storeng/bolt"
	"rubin.dev/sequencer/storeng/memory"
	"rubin.dev/sequencer/storeng/pebbledb"
	"rubin.dev/sequencer/types"
)

// openEngine opens the storeng.Engine named by cfg.StoreBackend, rooted
// under cfg.DataDir for the on-disk backends.
func openEngine(cfg config.Config) (storeng.Engine, error) {
	switch cfg.StoreBackend {
	case "memory":
		return memory.New(), nil
	case "bolt":
		return bolt.Open(filepath.Join(cfg.DataDir, "chain.bolt"))
	case "pebble":
		return pebbledb.Open(filepath.Join(cfg.DataDir, "chain"))
	default:
		return nil, fmt.Errorf("rubin-sequencer: unknown store backend %q", cfg.StoreBackend)
	}
}

// chainIDHex is the fixed chain identifier reported through
// GetExecutionInfo; this deployment only ever serves one chain.
const chainIDHex = "0x524542494e" // "RUBIN"

// newExecEngine constructs the exec.Engine named by cfg.ExecBackend, each
// wired to a fresh DefaultSyscallHandler reporting a fixed block context.
func newExecEngine(cfg config.Config) (exec.Engine, error) {
	chainID, err := types.FeltFromHex(chainIDHex)
	if err != nil {
		return nil, fmt.Errorf("rubin-sequencer: chain id: %w", err)
	}
	info := exec.ExecutionInfo{
		ChainID:          chainID,
		SequencerAddress: types.FeltFromUint64(0),
		MaxFee:           types.FeltFromUint64(cfg.GasLimit),
	}
	syscall := exec.NewDefaultSyscallHandler(info)

	switch cfg.ExecBackend {
	case "state_machine":
		return statemachine.New(statemachine.BlockContext{FeeLimit: info.MaxFee, ChainID: info.ChainID}, syscall, cfg.GasLimit), nil
	case "interpreter":
		return interpreter.New(syscall), nil
	case "jit":
		return jit.New(syscall, cfg.GasLimit), nil
	default:
		return nil, fmt.Errorf("rubin-sequencer: unknown exec backend %q", cfg.ExecBackend)
	}
}
