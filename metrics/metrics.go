// Package metrics exposes the Prometheus instrumentation layer: pipeline
// throughput, store operation counts, and execution outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksSealed counts blocks the block builder has produced and
	// persisted, including empty idle-timeout blocks.
	BlocksSealed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rubin_sequencer",
		Name:      "blocks_sealed_total",
		Help:      "Total number of blocks sealed by the commit pipeline.",
	})

	// ExecutionOutcomes counts invoke executions by outcome ("success" or
	// "error").
	ExecutionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rubin_sequencer",
		Name:      "execution_outcomes_total",
		Help:      "Total InvokeV1 executions by outcome.",
	}, []string{"outcome"})

	// StoreOps counts façade operations by name, backend and outcome.
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rubin_sequencer",
		Name:      "store_ops_total",
		Help:      "Total store façade operations by op, backend and outcome.",
	}, []string{"op", "backend", "outcome"})
)
