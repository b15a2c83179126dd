package interpreter

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
	return New(exec.NewDefaultSyscallHandler(info))
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

func TestExecuteERC20Constructor(t *testing.T) {
	b := newBackend()
	rd, err := b.Execute(context.Background(), invokeTx(types.DispatchERC20Ctor, 1, 2, 42))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rd) != 1 || rd[0].Uint64() != 42 {
		t.Fatalf("Execute erc20 ctor = %v, want [42]", rd)
	}
}

func TestExecuteRejectsUnknownDispatchTag(t *testing.T) {
	b := newBackend()
	if _, err := b.Execute(context.Background(), invokeTx(99)); err == nil {
		t.Fatal("expected error for unknown dispatch tag")
	}
}
