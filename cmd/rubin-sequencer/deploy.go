package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"rubin.dev/sequencer/blockbuilder"
	"rubin.dev/sequencer/config"
	"rubin.dev/sequencer/crypto"
	"rubin.dev/sequencer/logging"
	"rubin.dev/sequencer/store"
	"rubin.dev/sequencer/types"
)

var deployTargets = map[string]uint64{
	"fibonacci": types.DispatchFibonacci,
	"factorial": types.DispatchFactorial,
	"erc20":     types.DispatchERC20Ctor,
}

func newDeployCommand(loadConfig func(*cobra.Command) (config.Config, error)) *cobra.Command {
	var target string
	var args []uint64
	var nonce uint64

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Execute a single InvokeV1 call against a node's data dir and seal it as its own block",
		Long: "deploy bypasses the mempool and consensus round entirely: it builds one InvokeV1\n" +
			"transaction against --target's dispatch tag, executes it, and seals the result as a\n" +
			"new block on top of the node's current chain tip. Useful for standalone smoke tests\n" +
			"of a store/exec backend pairing without a consensus engine attached.",
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dispatchTag, ok := deployTargets[target]
			if !ok {
				return fmt.Errorf("rubin-sequencer: unknown deploy target %q (want one of fibonacci, factorial, erc20)", target)
			}
			return deployOnce(cfg, dispatchTag, args, nonce, cmd)
		},
	}
	cmd.Flags().StringVar(&target, "target", "fibonacci", "dispatch target: fibonacci|factorial|erc20")
	cmd.Flags().Uint64SliceVar(&args, "arg", nil, "entry-point argument (repeatable, 64-bit unsigned)")
	cmd.Flags().Uint64Var(&nonce, "nonce", 0, "transaction nonce")
	return cmd
}

func deployOnce(cfg config.Config, dispatchTag uint64, rawArgs []uint64, nonce uint64, cmd *cobra.Command) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	chain, err := store.New(engine, cfg.StoreBackend)
	if err != nil {
		return fmt.Errorf("rubin-sequencer: open store: %w", err)
	}

	execEngine, err := newExecEngine(cfg)
	if err != nil {
		return err
	}

	calldata := make([]types.Felt, 0, 1+len(rawArgs))
	calldata = append(calldata, types.FeltFromUint64(dispatchTag))
	for _, a := range rawArgs {
		calldata = append(calldata, types.FeltFromUint64(a))
	}

	tx := types.Transaction{
		Kind:          types.TxKindInvokeV1,
		Nonce:         types.FeltFromUint64(nonce),
		SenderAddress: types.FeltFromUint64(dispatchTag),
		MaxFee:        types.FeltFromUint64(cfg.GasLimit),
		Calldata:      calldata,
	}
	tx.TransactionHash = transactionDigest(tx)

	retdata, err := execEngine.Execute(context.Background(), tx)
	if err != nil {
		return fmt.Errorf("rubin-sequencer: execution failed: %w", err)
	}
	if err := chain.AddTransaction(tx); err != nil {
		return fmt.Errorf("rubin-sequencer: persist transaction: %w", err)
	}

	height, err := chain.GetHeight()
	if err != nil {
		return fmt.Errorf("rubin-sequencer: read height: %w", err)
	}
	var previous *types.BlockWithTxs
	if height > 0 {
		maybe, ok, err := chain.GetBlockByHeight(height)
		if err != nil {
			return fmt.Errorf("rubin-sequencer: read previous block: %w", err)
		}
		if ok {
			b, err := maybe.AsBlock()
			if err == nil {
				previous = &b
			}
		}
	}

	block, receipts := blockbuilder.Build(height, previous, []types.Transaction{tx}, func() uint64 { return uint64(nowFn().Unix()) })
	if err := chain.AddBlock(block); err != nil {
		return fmt.Errorf("rubin-sequencer: persist block: %w", err)
	}
	for _, r := range receipts {
		if err := chain.AddReceipt(r); err != nil {
			return fmt.Errorf("rubin-sequencer: persist receipt: %w", err)
		}
	}
	if err := chain.SetHeight(block.BlockNumber); err != nil {
		return fmt.Errorf("rubin-sequencer: advance height: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "tx_hash=%s block_number=%d retdata=%v\n", tx.TransactionHash.Hex(), block.BlockNumber, retdata)
	return nil
}

// transactionDigest derives a deterministic transaction hash from the
// fields a submitter controls, via the same CryptoProvider contract the
// CLI's key handling uses.
func transactionDigest(tx types.Transaction) types.Felt {
	var provider crypto.CryptoProvider = crypto.DevStdCryptoProvider{}
	buf := append([]byte{}, tx.Nonce.Bytes()...)
	buf = append(buf, tx.SenderAddress.Bytes()...)
	for _, c := range tx.Calldata {
		buf = append(buf, c.Bytes()...)
	}
	digest, err := provider.SHA3_256(buf)
	if err != nil {
		// DevStdCryptoProvider.SHA3_256 never actually fails.
		return types.Felt{}
	}
	return types.Felt(digest)
}
