package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsPassValidation(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Validate(Defaults()) = %v, want nil", err)
	}
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != "memory" || cfg.ExecBackend != "state_machine" {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "store_backend: bolt\nexec_backend: interpreter\nrpc_addr: 0.0.0.0:8080\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != "bolt" {
		t.Fatalf("StoreBackend = %q, want bolt", cfg.StoreBackend)
	}
	if cfg.ExecBackend != "interpreter" {
		t.Fatalf("ExecBackend = %q, want interpreter", cfg.ExecBackend)
	}
	if cfg.RPCAddr != "0.0.0.0:8080" {
		t.Fatalf("RPCAddr = %q, want 0.0.0.0:8080", cfg.RPCAddr)
	}
	// Fields not set in the file still fall back to defaults.
	if cfg.GasLimit != Defaults().GasLimit {
		t.Fatalf("GasLimit = %d, want default %d", cfg.GasLimit, Defaults().GasLimit)
	}
}

func TestLoadRejectsInvalidStoreBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("store_backend: not-a-backend\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid store_backend")
	}
}

func TestValidateRejectsEmptyDataDir(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "  "
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty data_dir")
	}
}

func TestValidateRejectsUnknownExecBackend(t *testing.T) {
	cfg := Defaults()
	cfg.ExecBackend = "bogus"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown exec_backend")
	}
}

func TestValidateRejectsMalformedAddr(t *testing.T) {
	cfg := Defaults()
	cfg.RPCAddr = "not-an-address"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for malformed rpc_addr")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown log_level")
	}
}

func TestValidateRejectsZeroGasLimit(t *testing.T) {
	cfg := Defaults()
	cfg.GasLimit = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for zero gas_limit")
	}
}

func TestValidateAcceptsUppercaseLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "WARN"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v, want nil for case-insensitive log level", err)
	}
}
