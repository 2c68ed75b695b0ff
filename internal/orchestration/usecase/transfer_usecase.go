package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dsorch/orchestrator/internal/clock"
	"github.com/dsorch/orchestrator/internal/connector"
	apperrors "github.com/dsorch/orchestrator/internal/errors"
	"github.com/dsorch/orchestrator/internal/orchestration/domain"
	"github.com/dsorch/orchestrator/internal/storage"
)

// TransferConfig holds the workflow settings of the transfer use case.
type TransferConfig struct {
	// DefaultConnectorID is used for entries that do not name a provider connector.
	DefaultConnectorID string
	// EDRMaxRetries is the number of data address attempts. Values below one mean one attempt.
	EDRMaxRetries int
	// EDRRetryDelay is the flat delay before every attempt after the first.
	EDRRetryDelay time.Duration
}

// TransferOption customizes a transfer use case.
type TransferOption func(*transferUseCase)

// WithSleep replaces the function used to wait between data address attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) TransferOption {
	return func(u *transferUseCase) {
		u.sleep = sleep
	}
}

// WithIDGenerator replaces the orchestration id generator.
func WithIDGenerator(newID func() string) TransferOption {
	return func(u *transferUseCase) {
		u.newID = newID
	}
}

// transferUseCase drives orchestration processes through the connector.
type transferUseCase struct {
	repo      ProcessRepository
	connector Connector
	store     ContentStore
	clock     clock.Clock
	cfg       TransferConfig
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	newID     func() string
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(
	repo ProcessRepository,
	conn Connector,
	store ContentStore,
	clk clock.Clock,
	cfg TransferConfig,
	logger *slog.Logger,
	opts ...TransferOption,
) TransferUseCase {
	u := &transferUseCase{
		repo:      repo,
		connector: conn,
		store:     store,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
		sleep:     clock.Sleep,
		newID:     clock.NewID,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Orchestrate runs the workflow of req to completion. The inbound context only contributes its
// values; a caller going away does not stop a started workflow.
func (u *transferUseCase) Orchestrate(
	ctx context.Context,
	req domain.Request,
	originalRequest map[string]any,
) (*domain.Process, error) {
	ctx = context.WithoutCancel(ctx)

	process := domain.NewProcess(u.newID(), req.Type(), originalRequest, u.clock.Now())
	process.Properties = requestProperties(req)
	if err := u.repo.Create(ctx, process); err != nil {
		return nil, err
	}

	logger := u.logger.With(
		slog.String("orchestration_id", process.ID),
		slog.String("type", string(process.Type)),
	)
	logger.Info("orchestration process created")

	run := &workflow{transferUseCase: u, id: process.ID, last: process, logger: logger}

	var err error
	switch r := req.(type) {
	case domain.DataRequest:
		err = run.register(ctx, r)
	case domain.ServiceRequest:
		err = run.transfer(ctx, []domain.TransferSpec{r.Transfer}, domain.StatusInitiated)
	case domain.CombinedRequest:
		err = run.transfer(ctx, r.Entries, domain.StatusAssetRegistered)
	default:
		err = domain.ErrUnsupportedType
	}
	if err != nil {
		return run.fail(ctx, err), err
	}

	logger.Info("orchestration process finished", slog.String("status", string(run.last.Status)))
	return run.last, nil
}

// workflow tracks one running orchestration.
type workflow struct {
	*transferUseCase
	id     string
	last   *domain.Process
	logger *slog.Logger
}

// update persists a mutation. A process removed while the workflow runs is logged and the
// workflow continues against its last known snapshot.
func (w *workflow) update(ctx context.Context, mutate func(*domain.Process) error) error {
	process, err := w.repo.Update(ctx, w.id, mutate)
	if apperrors.Is(err, domain.ErrProcessNotFound) {
		w.logger.Warn("orchestration process disappeared from the store")
		snapshot := w.last.Clone()
		if err := mutate(snapshot); err != nil {
			return err
		}
		w.last = snapshot
		return nil
	}
	if err != nil {
		return err
	}
	w.last = process
	return nil
}

func (w *workflow) register(ctx context.Context, req domain.DataRequest) error {
	err := w.update(ctx, func(p *domain.Process) error {
		p.Endpoint = req.Endpoint
		p.AuthType = req.AuthType
		p.Properties = req.Properties
		return p.Advance(domain.StatusRegistered)
	})
	if err != nil {
		return err
	}

	w.logger.Info("data endpoint registered", slog.String("endpoint", req.Endpoint))
	return nil
}

// transfer pulls every entry in order and stops at the first failure.
func (w *workflow) transfer(ctx context.Context, entries []domain.TransferSpec, registered domain.Status) error {
	for i, entry := range entries {
		if err := w.pull(ctx, entry, registered); err != nil {
			if len(entries) > 1 {
				return fmt.Errorf("entry %d (contract %s): %w", i, entry.ContractID, err)
			}
			return err
		}
	}

	return w.update(ctx, func(p *domain.Process) error {
		return p.Advance(domain.StatusCompleted)
	})
}

// pull initiates one transfer, waits for its data address and stores the payload behind it.
func (w *workflow) pull(ctx context.Context, entry domain.TransferSpec, registered domain.Status) error {
	connectorID := entry.ConnectorID
	if connectorID == "" {
		connectorID = w.cfg.DefaultConnectorID
	}

	started, err := w.connector.InitiateTransfer(ctx, connector.TransferRequest{
		CounterPartyAddress: entry.CounterPartyAddress,
		ContractID:          entry.ContractID,
		ConnectorID:         connectorID,
		AssetID:             entry.AssetID,
		Properties:          entry.Properties,
	})
	if err != nil {
		return fmt.Errorf("initiate transfer: %w", err)
	}

	logger := w.logger.With(slog.String("transfer_id", started.ID))
	logger.Info("transfer initiated", slog.String("contract_id", entry.ContractID))

	err = w.update(ctx, func(p *domain.Process) error {
		p.TransferID = started.ID
		p.ConnectorResponse = started.Raw
		return p.Advance(registered)
	})
	if err != nil {
		return err
	}

	address, err := w.retrieveDataAddress(ctx, started.ID, logger)
	if err != nil {
		return err
	}

	err = w.update(ctx, func(p *domain.Process) error {
		p.DataAddress = address.Raw
		return p.Advance(domain.StatusDataAddressRetrieved)
	})
	if err != nil {
		return err
	}

	if address.Endpoint == "" {
		return fmt.Errorf("%w: data address of transfer %s has no endpoint", connector.ErrInvalidPayload, started.ID)
	}

	result, err := w.download(ctx, started.ID, address)
	if err != nil {
		return err
	}
	result.ContractID = entry.ContractID

	logger.Info("payload stored", slog.String("path", result.Path), slog.Int("size", result.Size))

	return w.update(ctx, func(p *domain.Process) error {
		p.DataResponses = append(p.DataResponses, *result)
		return nil
	})
}

// retrieveDataAddress polls the connector until a data address is issued or attempts run out.
func (w *workflow) retrieveDataAddress(
	ctx context.Context,
	transferID string,
	logger *slog.Logger,
) (*connector.DataAddress, error) {
	attempts := max(w.cfg.EDRMaxRetries, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := w.sleep(ctx, w.cfg.EDRRetryDelay); err != nil {
				return nil, err
			}
		}

		address, err := w.connector.GetDataAddress(ctx, transferID)
		if err == nil {
			logger.Info("data address retrieved", slog.Int("attempt", attempt))
			return address, nil
		}
		if !connector.IsRetryable(err) {
			return nil, fmt.Errorf("retrieve data address: %w", err)
		}

		lastErr = err
		logger.Warn("data address not available",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)
	}

	return nil, fmt.Errorf("retrieve data address after %d attempts: %w", attempts, lastErr)
}

// download fetches the payload behind address and writes it to the content store.
func (w *workflow) download(
	ctx context.Context,
	transferID string,
	address *connector.DataAddress,
) (*domain.DataResponse, error) {
	payload, err := w.connector.Download(ctx, address.Endpoint, address.Authorization)
	if err != nil {
		return nil, fmt.Errorf("download payload: %w", err)
	}

	kind := storage.KindForMediaType(payload.MediaType)
	data := payload.Body
	if kind == storage.KindJSON {
		// Indent rewrites whitespace only; number and string tokens are copied as sent.
		var indented bytes.Buffer
		if !json.Valid(payload.Body) || json.Indent(&indented, payload.Body, "", "  ") != nil {
			return nil, fmt.Errorf("download payload: %w", &apperrors.UpstreamError{
				StatusCode: 200,
				Body:       string(payload.Body),
				Message:    fmt.Sprintf("payload declared as %s is not valid JSON", payload.MediaType),
			})
		}
		data = indented.Bytes()
	}

	path, err := w.store.Save(ctx, transferID, kind, data)
	if err != nil {
		return nil, err
	}

	return &domain.DataResponse{
		TransferID:  transferID,
		Path:        path,
		ContentType: payload.MediaType,
		Kind:        string(kind),
		Size:        len(data),
		Status:      domain.DataResponseStored,
		StoredAt:    w.clock.Now(),
	}, nil
}

// fail records cause on the process and returns the resulting snapshot.
func (w *workflow) fail(ctx context.Context, cause error) *domain.Process {
	detail := describeFailure(cause)
	w.logger.Error("orchestration process failed", slog.String("error", detail))

	err := w.update(ctx, func(p *domain.Process) error {
		return p.Fail(detail)
	})
	if err != nil {
		w.logger.Error("failed to record orchestration failure", slog.Any("error", err))
	}
	return w.last
}

// describeFailure renders err with the upstream response body appended when the message
// does not already carry it.
func describeFailure(err error) string {
	detail := err.Error()

	var upstreamErr *apperrors.UpstreamError
	if apperrors.As(err, &upstreamErr) && upstreamErr.Body != "" && !strings.Contains(detail, upstreamErr.Body) {
		detail += ": " + upstreamErr.Body
	}
	return detail
}

func requestProperties(req domain.Request) map[string]any {
	switch r := req.(type) {
	case domain.ServiceRequest:
		return r.Transfer.Properties
	case domain.DataRequest:
		return r.Properties
	case domain.CombinedRequest:
		return r.Properties
	default:
		return nil
	}
}
