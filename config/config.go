// Package config loads sequencer configuration from a file, environment
// variables and command-line flags, in that precedence order, through
// github.com/spf13/viper. The field set covers a sequencer's
// store-backend/execution-backend/RPC shape.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of knobs rubin-sequencer accepts.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	// StoreBackend selects the storeng.Engine: "memory", "bolt", "pebble".
	StoreBackend string `mapstructure:"store_backend"`

	// ExecBackend selects the exec.Engine: "state_machine", "interpreter", "jit".
	ExecBackend string `mapstructure:"exec_backend"`

	RPCAddr string `mapstructure:"rpc_addr"`

	LogLevel string `mapstructure:"log_level"`

	// Benchmarking makes the pipeline strip the 9-byte wire-frame header
	// from each batched transaction before decoding it.
	Benchmarking bool `mapstructure:"benchmarking"`

	GasLimit uint64 `mapstructure:"gas_limit"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var allowedStoreBackends = map[string]struct{}{
	"memory": {},
	"bolt":   {},
	"pebble": {},
}

var allowedExecBackends = map[string]struct{}{
	"state_machine": {},
	"interpreter":   {},
	"jit":           {},
}

// DefaultDataDir mirrors the $HOME/.rubin-sequencer convention.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".rubin-sequencer"
	}
	return filepath.Join(home, ".rubin-sequencer")
}

// Defaults returns the baseline configuration before file/env/flag
// overrides are layered on.
func Defaults() Config {
	return Config{
		DataDir:      DefaultDataDir(),
		StoreBackend: "memory",
		ExecBackend:  "state_machine",
		RPCAddr:      "127.0.0.1:9545",
		LogLevel:     "info",
		Benchmarking: false,
		GasLimit:     1_000_000,
	}
}

// Load builds a viper instance bound to RUBIN_SEQUENCER_* environment
// variables and, if non-empty, a config file at path, then decodes the
// result into a Config seeded with Defaults().
func Load(path string) (Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("store_backend", d.StoreBackend)
	v.SetDefault("exec_backend", d.ExecBackend)
	v.SetDefault("rpc_addr", d.RPCAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("benchmarking", d.Benchmarking)
	v.SetDefault("gas_limit", d.GasLimit)

	v.SetEnvPrefix("rubin_sequencer")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects a Config with missing or out-of-range fields before
// any component is constructed from it.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("config: data_dir is required")
	}
	if _, ok := allowedStoreBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("config: invalid store_backend %q", cfg.StoreBackend)
	}
	if _, ok := allowedExecBackends[cfg.ExecBackend]; !ok {
		return fmt.Errorf("config: invalid exec_backend %q", cfg.ExecBackend)
	}
	if err := validateAddr(cfg.RPCAddr); err != nil {
		return fmt.Errorf("config: invalid rpc_addr: %w", err)
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("config: invalid log_level %q", cfg.LogLevel)
	}
	if cfg.GasLimit == 0 {
		return errors.New("config: gas_limit must be > 0")
	}
	return nil
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}
