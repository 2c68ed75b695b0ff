package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StatusCounter reports how many orchestration processes are in each status.
type StatusCounter func(ctx context.Context) (map[string]int, error)

// RegisterProcessGauge exposes the process count per status as <namespace>_processes.
// The counter is called on every collection; a failing call skips that collection.
func RegisterProcessGauge(meterProvider metric.MeterProvider, namespace string, count StatusCounter) error {
	meter := meterProvider.Meter(namespace)

	gauge, err := meter.Int64ObservableGauge(
		namespace+"_processes",
		metric.WithDescription("Number of orchestration processes held in memory by status"),
		metric.WithUnit("{process}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create process gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		counts, err := count(ctx)
		if err != nil {
			return err
		}
		for status, n := range counts {
			o.ObserveInt64(gauge, int64(n), metric.WithAttributes(attribute.String("status", status)))
		}
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("failed to register process gauge callback: %w", err)
	}
	return nil
}
