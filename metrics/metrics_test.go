package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBlocksSealedIncrements(t *testing.T) {
	before := testutil.ToFloat64(BlocksSealed)
	BlocksSealed.Inc()
	after := testutil.ToFloat64(BlocksSealed)
	if after != before+1 {
		t.Fatalf("BlocksSealed = %v, want %v", after, before+1)
	}
}

func TestExecutionOutcomesLabelsIndependently(t *testing.T) {
	before := testutil.ToFloat64(ExecutionOutcomes.WithLabelValues("success"))
	ExecutionOutcomes.WithLabelValues("success").Inc()
	after := testutil.ToFloat64(ExecutionOutcomes.WithLabelValues("success"))
	if after != before+1 {
		t.Fatalf("ExecutionOutcomes{success} = %v, want %v", after, before+1)
	}
}

func TestStoreOpsLabelsByOpBackendOutcome(t *testing.T) {
	before := testutil.ToFloat64(StoreOps.WithLabelValues("get_value", "memory", "ok"))
	StoreOps.WithLabelValues("get_value", "memory", "ok").Inc()
	after := testutil.ToFloat64(StoreOps.WithLabelValues("get_value", "memory", "ok"))
	if after != before+1 {
		t.Fatalf("StoreOps = %v, want %v", after, before+1)
	}
}
