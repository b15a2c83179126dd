package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rubin.dev/sequencer/config"
	"rubin.dev/sequencer/logging"
	"rubin.dev/sequencer/mempool"
	"rubin.dev/sequencer/pipeline"
	"rubin.dev/sequencer/rpcserver"
	"rubin.dev/sequencer/store"
)

// shutdownGrace bounds how long the RPC server waits for in-flight
// requests to finish once a shutdown signal arrives.
const shutdownGrace = 5 * time.Second

func newRunCommand(loadConfig func(*cobra.Command) (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the commit pipeline and RPC server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runNode(cfg)
		},
	}
}

func runNode(cfg config.Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("rubin-sequencer: create data dir: %w", err)
	}

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

	pool := mempool.New()
	pipe := pipeline.New(chain, pool, execEngine, log, nil, cfg.Benchmarking)
	rpc := rpcserver.New(cfg.RPCAddr, chain, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return pipe.Run(gctx) })
	group.Go(func() error {
		log.Info("rubin-sequencer: rpc listening", zap.String("addr", cfg.RPCAddr))
		return rpc.ListenAndServe()
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return rpc.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	log.Info("rubin-sequencer: stopped")
	return nil
}
