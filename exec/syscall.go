package exec

import (
	"crypto/sha3"
	"math/big"

	"rubin.dev/sequencer/types"
)

// ExecutionInfo is the deterministic block/transaction context a syscall
// handler reports back to a running contract.
type ExecutionInfo struct {
	BlockNumber      uint64
	BlockTimestamp   uint64
	SequencerAddress types.Felt
	ChainID          types.Felt
	MaxFee           types.Felt
}

// ECPoint is a point on the elliptic curve the EC syscalls operate over.
// The underlying curve arithmetic is treated as a black-box primitive;
// this shape exists so the handler contract is complete.
type ECPoint struct {
	X, Y types.Felt
}

// SyscallHandler is the capability object supplied to a backend at
// invocation time. Backends that don't need it (e.g. a pure-arithmetic
// Fibonacci call) simply never call it.
type SyscallHandler interface {
	GetBlockHash(blockNumber uint64) (types.Felt, error)
	GetExecutionInfo() (ExecutionInfo, error)
	Deploy(classHash types.Felt, salt types.Felt, constructorCalldata []types.Felt) (types.Felt, error)
	ReplaceClass(classHash types.Felt) error
	LibraryCall(classHash, selector types.Felt, calldata []types.Felt) (Retdata, error)
	CallContract(contractAddress, selector types.Felt, calldata []types.Felt) (Retdata, error)
	StorageRead(address types.Felt) (types.Felt, error)
	StorageWrite(address, value types.Felt) error
	EmitEvent(keys, data []types.Felt) error
	SendMessageToL1(toAddress types.Felt, payload []types.Felt) error
	Keccak(input []byte) (types.Felt, error)
	ECPointAdd(p, q ECPoint) (ECPoint, error)
	ECPointMul(p ECPoint, scalar types.Felt) (ECPoint, error)
	ECStateAdd(state ECPoint, p ECPoint) (ECPoint, error)
}

// DefaultSyscallHandler returns deterministic stub values suitable for
// testing; a production deployment would replace it with one backed by
// real state and L1 messaging.
type DefaultSyscallHandler struct {
	Info ExecutionInfo
	// Storage is an in-memory address->value map that lives as long as the
	// handler, so storage_read/storage_write round-trip within one
	// execution and across every invoke that shares this handler.
	Storage map[types.Felt]types.Felt
}

// NewDefaultSyscallHandler builds a handler reporting the given fixed
// block context.
func NewDefaultSyscallHandler(info ExecutionInfo) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{Info: info, Storage: make(map[types.Felt]types.Felt)}
}

func (h *DefaultSyscallHandler) GetBlockHash(blockNumber uint64) (types.Felt, error) {
	return types.FeltFromUint64(blockNumber), nil
}

func (h *DefaultSyscallHandler) GetExecutionInfo() (ExecutionInfo, error) {
	return h.Info, nil
}

func (h *DefaultSyscallHandler) Deploy(classHash, salt types.Felt, constructorCalldata []types.Felt) (types.Felt, error) {
	// Deterministic stub: the deployed address is derived from class hash
	// and salt only, ignoring constructor calldata content.
	sum := classHash.BigInt()
	sum.Add(sum, salt.BigInt())
	f, err := types.FeltFromBigInt(sum)
	if err != nil {
		return types.Felt{}, err
	}
	return f, nil
}

func (h *DefaultSyscallHandler) ReplaceClass(types.Felt) error { return nil }

func (h *DefaultSyscallHandler) LibraryCall(classHash, selector types.Felt, calldata []types.Felt) (Retdata, error) {
	return echo(calldata), nil
}

func (h *DefaultSyscallHandler) CallContract(contractAddress, selector types.Felt, calldata []types.Felt) (Retdata, error) {
	return echo(calldata), nil
}

func (h *DefaultSyscallHandler) StorageRead(address types.Felt) (types.Felt, error) {
	return h.Storage[address], nil
}

func (h *DefaultSyscallHandler) StorageWrite(address, value types.Felt) error {
	h.Storage[address] = value
	return nil
}

func (h *DefaultSyscallHandler) EmitEvent(keys, data []types.Felt) error { return nil }

func (h *DefaultSyscallHandler) SendMessageToL1(toAddress types.Felt, payload []types.Felt) error {
	return nil
}

func (h *DefaultSyscallHandler) Keccak(input []byte) (types.Felt, error) {
	digest := sha3.Sum256(input)
	var f types.Felt
	copy(f[:], digest[:])
	return f, nil
}

func (h *DefaultSyscallHandler) ECPointAdd(p, q ECPoint) (ECPoint, error) {
	x, err := types.FeltFromBigInt(addBig(p.X, q.X))
	if err != nil {
		return ECPoint{}, err
	}
	y, err := types.FeltFromBigInt(addBig(p.Y, q.Y))
	if err != nil {
		return ECPoint{}, err
	}
	return ECPoint{X: x, Y: y}, nil
}

func (h *DefaultSyscallHandler) ECPointMul(p ECPoint, scalar types.Felt) (ECPoint, error) {
	x := p.X.BigInt()
	x.Mul(x, scalar.BigInt())
	y := p.Y.BigInt()
	y.Mul(y, scalar.BigInt())
	fx, err := types.FeltFromBigInt(x)
	if err != nil {
		return ECPoint{}, err
	}
	fy, err := types.FeltFromBigInt(y)
	if err != nil {
		return ECPoint{}, err
	}
	return ECPoint{X: fx, Y: fy}, nil
}

func (h *DefaultSyscallHandler) ECStateAdd(state ECPoint, p ECPoint) (ECPoint, error) {
	return h.ECPointAdd(state, p)
}

func addBig(a, b types.Felt) *big.Int {
	r := a.BigInt()
	r.Add(r, b.BigInt())
	return r
}

var _ SyscallHandler = (*DefaultSyscallHandler)(nil)

func echo(calldata []types.Felt) Retdata {
	out := make(Retdata, len(calldata))
	copy(out, calldata)
	return out
}
