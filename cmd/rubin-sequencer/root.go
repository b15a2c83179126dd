package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rubin.dev/sequencer/config"
)

// flagConfig mirrors config.Config so cobra flags can be bound to
// individual fields; only the fields the user actually set on the
// command line override what config.Load produced from file/env.
type flagConfig struct {
	configFile   string
	dataDir      string
	storeBackend string
	execBackend  string
	rpcAddr      string
	logLevel     string
	benchmarking bool
	gasLimit     uint64
}

func newRootCommand() *cobra.Command {
	var flags flagConfig

	root := &cobra.Command{
		Use:           "rubin-sequencer",
		Short:         "Commit-to-execution pipeline and read-only RPC surface",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "path to a config file (YAML, JSON, TOML, ...)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "node data directory")
	pf.StringVar(&flags.storeBackend, "store-backend", "", "storage engine: memory|bolt|pebble")
	pf.StringVar(&flags.execBackend, "exec-backend", "", "execution backend: state_machine|interpreter|jit")
	pf.StringVar(&flags.rpcAddr, "rpc-addr", "", "JSON-RPC listen address host:port")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.BoolVar(&flags.benchmarking, "benchmarking", false, "expect the 9-byte benchmark header on framed transactions")
	pf.Uint64Var(&flags.gasLimit, "gas-limit", 0, "per-invoke gas limit")

	loadConfig := func(cmd *cobra.Command) (config.Config, error) {
		cfg, err := config.Load(flags.configFile)
		if err != nil {
			return config.Config{}, err
		}
		f := cmd.Flags()
		if f.Changed("data-dir") {
			cfg.DataDir = flags.dataDir
		}
		if f.Changed("store-backend") {
			cfg.StoreBackend = flags.storeBackend
		}
		if f.Changed("exec-backend") {
			cfg.ExecBackend = flags.execBackend
		}
		if f.Changed("rpc-addr") {
			cfg.RPCAddr = flags.rpcAddr
		}
		if f.Changed("log-level") {
			cfg.LogLevel = flags.logLevel
		}
		if f.Changed("benchmarking") {
			cfg.Benchmarking = flags.benchmarking
		}
		if f.Changed("gas-limit") {
			cfg.GasLimit = flags.gasLimit
		}
		if err := config.Validate(cfg); err != nil {
			return config.Config{}, fmt.Errorf("rubin-sequencer: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(newRunCommand(loadConfig))
	root.AddCommand(newKeysCommand(loadConfig))
	root.AddCommand(newDeployCommand(loadConfig))
	return root
}
