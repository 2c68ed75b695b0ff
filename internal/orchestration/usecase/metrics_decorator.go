package usecase

import (
	"context"
	"time"

	"github.com/dsorch/orchestrator/internal/metrics"
	"github.com/dsorch/orchestrator/internal/orchestration/domain"
)

const metricsDomain = "orchestration"

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// transferUseCaseWithMetrics decorates TransferUseCase with metrics instrumentation.
type transferUseCaseWithMetrics struct {
	next    TransferUseCase
	metrics metrics.BusinessMetrics
}

// NewTransferUseCaseWithMetrics wraps a TransferUseCase with metrics recording.
func NewTransferUseCaseWithMetrics(useCase TransferUseCase, m metrics.BusinessMetrics) TransferUseCase {
	return &transferUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Orchestrate records metrics per workflow variant.
func (t *transferUseCaseWithMetrics) Orchestrate(
	ctx context.Context,
	req domain.Request,
	originalRequest map[string]any,
) (*domain.Process, error) {
	start := time.Now()
	process, err := t.next.Orchestrate(ctx, req, originalRequest)

	operation := "orchestrate_" + string(req.Type())
	status := outcome(err)

	t.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	t.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)

	return process, err
}

// statusUseCaseWithMetrics decorates StatusUseCase with metrics instrumentation.
type statusUseCaseWithMetrics struct {
	next    StatusUseCase
	metrics metrics.BusinessMetrics
}

// NewStatusUseCaseWithMetrics wraps a StatusUseCase with metrics recording.
func NewStatusUseCaseWithMetrics(useCase StatusUseCase, m metrics.BusinessMetrics) StatusUseCase {
	return &statusUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// List records metrics for bulk status queries.
func (s *statusUseCaseWithMetrics) List(ctx context.Context) ([]*domain.Process, error) {
	start := time.Now()
	processes, err := s.next.List(ctx)

	status := outcome(err)
	s.metrics.RecordOperation(ctx, metricsDomain, "status_list", status)
	s.metrics.RecordDuration(ctx, metricsDomain, "status_list", time.Since(start), status)

	return processes, err
}

// Get records metrics for single status queries.
func (s *statusUseCaseWithMetrics) Get(ctx context.Context, id, clientHost string) (*ProcessStatus, error) {
	start := time.Now()
	processStatus, err := s.next.Get(ctx, id, clientHost)

	status := outcome(err)
	s.metrics.RecordOperation(ctx, metricsDomain, "status_get", status)
	s.metrics.RecordDuration(ctx, metricsDomain, "status_get", time.Since(start), status)

	return processStatus, err
}

// retentionUseCaseWithMetrics decorates RetentionUseCase with metrics instrumentation.
type retentionUseCaseWithMetrics struct {
	next    RetentionUseCase
	metrics metrics.BusinessMetrics
}

// NewRetentionUseCaseWithMetrics wraps a RetentionUseCase with metrics recording.
func NewRetentionUseCaseWithMetrics(useCase RetentionUseCase, m metrics.BusinessMetrics) RetentionUseCase {
	return &retentionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Sweep records metrics for retention sweeps.
func (r *retentionUseCaseWithMetrics) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	deleted, err := r.next.Sweep(ctx)

	status := outcome(err)
	r.metrics.RecordOperation(ctx, metricsDomain, "retention_sweep", status)
	r.metrics.RecordDuration(ctx, metricsDomain, "retention_sweep", time.Since(start), status)

	return deleted, err
}
