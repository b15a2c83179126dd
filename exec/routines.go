package exec

import (
	"math/big"

	"rubin.dev/sequencer/types"
)

// computeFibonacci returns the n-th Fibonacci number (F(0)=0, F(1)=1).
func computeFibonacci(n uint64) *big.Int {
	if n == 0 {
		return big.NewInt(0)
	}
	a, b := big.NewInt(0), big.NewInt(1)
	for i := uint64(1); i < n; i++ {
		a, b = b, new(big.Int).Add(a, b)
	}
	return b
}

// computeFactorial returns n!.
func computeFactorial(n uint64) *big.Int {
	r := big.NewInt(1)
	for i := uint64(2); i <= n; i++ {
		r.Mul(r, new(big.Int).SetUint64(i))
	}
	return r
}

// erc20ConstructorArgs is the parsed shape of an ERC-20 constructor's
// calldata: {name, symbol, contract_address[, decimals, initial_supply]}.
type erc20ConstructorArgs struct {
	Name            types.Felt
	Symbol          types.Felt
	ContractAddress types.Felt
	Decimals        types.Felt
	InitialSupply   types.Felt
}

func parseERC20ConstructorArgs(args []types.Felt) (erc20ConstructorArgs, error) {
	if len(args) < 3 {
		return erc20ConstructorArgs{}, execErrf("invalid calldata: erc20 constructor needs at least 3 args, got %d", len(args))
	}
	out := erc20ConstructorArgs{
		Name:            args[0],
		Symbol:          args[1],
		ContractAddress: args[2],
	}
	if len(args) > 3 {
		out.Decimals = args[3]
	}
	if len(args) > 4 {
		out.InitialSupply = args[4]
	}
	return out, nil
}

// Dispatch executes the resolved target against args and returns retdata,
// independent of which backend is driving it. Each backend builds this
// the same way but may wrap it differently (memory segments for the
// interpreter, a compiled closure for the JIT); the arithmetic itself is
// shared so the three backends stay observably equivalent.
func Dispatch(target DispatchTarget, args []types.Felt, gas *GasPool) (Retdata, error) {
	switch target {
	case DispatchTargetFibonacci:
		if len(args) < 1 {
			return nil, execErrf("invalid calldata: fibonacci needs n")
		}
		n := args[0].Uint64()
		if err := gas.Consume(n); err != nil {
			return nil, err
		}
		f, err := types.FeltFromBigInt(computeFibonacci(n))
		if err != nil {
			return nil, execErrf("fibonacci: %v", err)
		}
		return Retdata{f}, nil

	case DispatchTargetFactorial:
		if len(args) < 1 {
			return nil, execErrf("invalid calldata: factorial needs n")
		}
		n := args[0].Uint64()
		if err := gas.Consume(n); err != nil {
			return nil, err
		}
		f, err := types.FeltFromBigInt(computeFactorial(n))
		if err != nil {
			return nil, execErrf("factorial: %v", err)
		}
		return Retdata{f}, nil

	case DispatchTargetERC20Constructor:
		parsed, err := parseERC20ConstructorArgs(args)
		if err != nil {
			return nil, err
		}
		if err := gas.Consume(uint64(len(args))); err != nil {
			return nil, err
		}
		return Retdata{parsed.ContractAddress}, nil

	default:
		return nil, execErrf("invalid calldata: unknown dispatch target")
	}
}
