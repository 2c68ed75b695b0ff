package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/dsorch/orchestrator/internal/clock"
	"github.com/dsorch/orchestrator/internal/orchestration/domain"
)

// sweepableStatuses are the statuses no workflow will move a process out of.
var sweepableStatuses = []domain.Status{
	domain.StatusCompleted,
	domain.StatusFailed,
	domain.StatusRegistered,
}

// retentionUseCase removes finished processes once they are older than the retention window.
type retentionUseCase struct {
	repo      ProcessRepository
	clock     clock.Clock
	retention time.Duration
	logger    *slog.Logger
}

// NewRetentionUseCase creates a new RetentionUseCase. A non-positive retention keeps every process.
func NewRetentionUseCase(
	repo ProcessRepository,
	clk clock.Clock,
	retention time.Duration,
	logger *slog.Logger,
) RetentionUseCase {
	return &retentionUseCase{
		repo:      repo,
		clock:     clk,
		retention: retention,
		logger:    logger,
	}
}

// Sweep deletes finished processes last updated before now minus the retention window.
func (r *retentionUseCase) Sweep(ctx context.Context) (int, error) {
	if r.retention <= 0 {
		return 0, nil
	}

	cutoff := r.clock.Now().Add(-r.retention)
	deleted, err := r.repo.DeleteUpdatedBefore(ctx, cutoff, sweepableStatuses)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		r.logger.Info("expired orchestration processes removed",
			slog.Int("count", deleted),
			slog.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
