package jit

import (
	"context"
	"testing"

	"rubin.dev/sequencer/exec"
	"rubin.dev/sequencer/types"
)

func invokeTx(calldata ...uint64) types.Transaction {
	cd := make([]types.Felt, len(calldata))
	for i, v := range calldata {
		cd[i] = types.FeltFromUint64(v)
	}
	return types.Transaction{Kind: types.TxKindInvokeV1, Calldata: cd}
}

func newBackend() *Backend {
	info := exec.ExecutionInfo{ChainID: types.FeltFromUint64(1)}
	return New(exec.NewDefaultSyscallHandler(info), exec.DefaultStateMachineGas)
}

func TestExecuteFibonacci(t *testing.T) {
	b := newBackend()
	rd, err := b.Execute(context.Background(), invokeTx(types.DispatchFibonacci, 10))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rd) != 1 || rd[0].Uint64() != 55 {
		t.Fatalf("Execute fibonacci(10) = %v, want [55]", rd)
	}
}

func TestExecuteFactorial(t *testing.T) {
	b := newBackend()
	rd, err := b.Execute(context.Background(), invokeTx(types.DispatchFactorial, 10))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rd) != 1 || rd[0].Uint64() != 3628800 {
		t.Fatalf("Execute factorial(10) = %v, want [3628800]", rd)
	}
}

func TestCompileIsMemoizedPerTarget(t *testing.T) {
	b := newBackend()
	first := b.compile(exec.DispatchTargetFibonacci)
	second := b.compile(exec.DispatchTargetFibonacci)
	gas := exec.NewGasPool(exec.InitialGas)
	rd1, err := first([]types.Felt{types.FeltFromUint64(5)}, gas, b.syscall)
	if err != nil {
		t.Fatalf("first routine: %v", err)
	}
	gas2 := exec.NewGasPool(exec.InitialGas)
	rd2, err := second([]types.Felt{types.FeltFromUint64(5)}, gas2, b.syscall)
	if err != nil {
		t.Fatalf("second routine: %v", err)
	}
	if rd1[0].Uint64() != rd2[0].Uint64() {
		t.Fatalf("memoized routine diverged: %v vs %v", rd1, rd2)
	}
}

func TestExecuteRejectsUnknownDispatchTag(t *testing.T) {
	b := newBackend()
	if _, err := b.Execute(context.Background(), invokeTx(99)); err == nil {
		t.Fatal("expected error for unknown dispatch tag")
	}
}
