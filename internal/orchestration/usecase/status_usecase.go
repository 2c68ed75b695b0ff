package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dsorch/orchestrator/internal/clock"
	"github.com/dsorch/orchestrator/internal/connector"
	"github.com/dsorch/orchestrator/internal/orchestration/domain"
)

type cachedTransfer struct {
	fetchedAt time.Time
	transfer  *connector.TransferProcess
}

// statusUseCase answers status queries from the repository and, on request, the connector.
type statusUseCase struct {
	repo      ProcessRepository
	connector Connector
	clock     clock.Clock
	cacheTTL  time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedTransfer
	group singleflight.Group
}

// NewStatusUseCase creates a new StatusUseCase. Live transfer states are reused for cacheTTL.
func NewStatusUseCase(
	repo ProcessRepository,
	conn Connector,
	clk clock.Clock,
	cacheTTL time.Duration,
	logger *slog.Logger,
) StatusUseCase {
	return &statusUseCase{
		repo:      repo,
		connector: conn,
		clock:     clk,
		cacheTTL:  cacheTTL,
		logger:    logger,
		cache:     make(map[string]cachedTransfer),
	}
}

// List returns every tracked process.
func (s *statusUseCase) List(ctx context.Context) ([]*domain.Process, error) {
	return s.repo.List(ctx)
}

// Get returns one process and, when clientHost is given, its live transfer state.
// Live lookup failures are logged and leave the transfer fields empty.
func (s *statusUseCase) Get(ctx context.Context, id, clientHost string) (*ProcessStatus, error) {
	process, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &ProcessStatus{Process: process}
	if clientHost == "" || process.TransferID == "" {
		return status, nil
	}

	transfer, err := s.liveTransfer(ctx, clientHost, process.TransferID)
	if err != nil {
		s.logger.Warn("failed to fetch live transfer state",
			slog.String("orchestration_id", process.ID),
			slog.String("transfer_id", process.TransferID),
			slog.String("client_host", clientHost),
			slog.Any("error", err),
		)
		return status, nil
	}

	status.TransferState = transfer.State
	status.Transfer = transfer.Raw
	return status, nil
}

// liveTransfer returns the cached state of transferID while fresh, otherwise asks the connector.
// Concurrent lookups of one transfer share a single call.
func (s *statusUseCase) liveTransfer(
	ctx context.Context,
	host, transferID string,
) (*connector.TransferProcess, error) {
	if cached, ok := s.cached(transferID); ok {
		return cached, nil
	}

	value, err, _ := s.group.Do(transferID, func() (any, error) {
		if cached, ok := s.cached(transferID); ok {
			return cached, nil
		}

		// Callers joining this flight must not lose the answer when the first one goes away.
		transfer, err := s.connector.GetTransferProcess(context.WithoutCancel(ctx), host, transferID)
		if err != nil {
			return nil, err
		}

		s.remember(transferID, transfer)
		return transfer, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*connector.TransferProcess), nil
}

// remember caches transfer and drops every entry whose TTL has elapsed.
func (s *statusUseCase) remember(transferID string, transfer *connector.TransferProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for id, entry := range s.cache {
		if now.Sub(entry.fetchedAt) >= s.cacheTTL {
			delete(s.cache, id)
		}
	}
	s.cache[transferID] = cachedTransfer{fetchedAt: now, transfer: transfer}
}

func (s *statusUseCase) cached(transferID string) (*connector.TransferProcess, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[transferID]
	if !ok {
		return nil, false
	}
	if s.clock.Now().Sub(entry.fetchedAt) >= s.cacheTTL {
		delete(s.cache, transferID)
		return nil, false
	}
	return entry.transfer, true
}
