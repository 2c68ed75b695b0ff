package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetrics(t *testing.T) {
	provider := newTestProvider(t, "orch_test")

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "orch_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "orchestration", "orchestrate_service", "success")
	bm.RecordOperation(ctx, "orchestration", "orchestrate_service", "success")
	bm.RecordOperation(ctx, "orchestration", "orchestrate_service", "error")
	bm.RecordOperation(ctx, "orchestration", "status_get", "success")

	bm.RecordDuration(ctx, "orchestration", "orchestrate_service", 3*time.Second, "success")
	bm.RecordDuration(ctx, "orchestration", "orchestrate_service", 4*time.Second, "success")
	bm.RecordDuration(ctx, "orchestration", "status_get", 3*time.Millisecond, "success")

	output := scrape(t, provider)

	assertMetricLine(t, output, `orch_test_operations_total`,
		`domain="orchestration".*operation="orchestrate_service".*status="success"`, `2`)
	assertMetricLine(t, output, `orch_test_operations_total`,
		`domain="orchestration".*operation="orchestrate_service".*status="error"`, `1`)
	assertMetricLine(t, output, `orch_test_operations_total`,
		`domain="orchestration".*operation="status_get".*status="success"`, `1`)

	assertMetricLine(t, output, `orch_test_operation_duration_seconds_count`,
		`domain="orchestration".*operation="orchestrate_service".*status="success"`, `2`)
	assertMetricLine(t, output, `orch_test_operation_duration_seconds_bucket`,
		`operation="orchestrate_service".*status="success".*le="2.5"`, `0`)
	assertMetricLine(t, output, `orch_test_operation_duration_seconds_bucket`,
		`operation="orchestrate_service".*status="success".*le="5"`, `2`)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	bm := NewNoOpBusinessMetrics()

	assert.NotPanics(t, func() {
		bm.RecordOperation(context.Background(), "orchestration", "status_list", "success")
		bm.RecordDuration(context.Background(), "orchestration", "status_list", time.Second, "error")
	})
}
