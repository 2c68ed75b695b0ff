// Package usecase implements the orchestration workflows: driving transfers through the
// connector, answering status queries and sweeping expired processes.
package usecase

import (
	"context"
	"time"

	"github.com/dsorch/orchestrator/internal/connector"
	"github.com/dsorch/orchestrator/internal/orchestration/domain"
	"github.com/dsorch/orchestrator/internal/storage"
)

// ProcessRepository defines the interface for orchestration process persistence.
type ProcessRepository interface {
	Create(ctx context.Context, process *domain.Process) error
	// Update applies mutate to the stored process and returns the committed copy.
	Update(ctx context.Context, id string, mutate func(*domain.Process) error) (*domain.Process, error)
	Get(ctx context.Context, id string) (*domain.Process, error)
	List(ctx context.Context) ([]*domain.Process, error)
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time, statuses []domain.Status) (int, error)
}

// Connector defines the calls made against the dataspace connector and provider data planes.
type Connector interface {
	InitiateTransfer(ctx context.Context, req connector.TransferRequest) (*connector.TransferProcess, error)
	GetDataAddress(ctx context.Context, transferID string) (*connector.DataAddress, error)
	Download(ctx context.Context, endpoint, authorization string) (*connector.Payload, error)
	GetTransferProcess(ctx context.Context, host, transferID string) (*connector.TransferProcess, error)
}

// ContentStore persists downloaded payloads and returns where they were written.
type ContentStore interface {
	Save(ctx context.Context, prefix string, kind storage.Kind, data []byte) (string, error)
}

// TransferUseCase defines the orchestration workflow.
type TransferUseCase interface {
	// Orchestrate creates a process for req and drives it to a terminal or registered state.
	// originalRequest is kept verbatim on the process. On failure the returned process, when
	// not nil, is the FAILED record carrying the error detail.
	Orchestrate(ctx context.Context, req domain.Request, originalRequest map[string]any) (*domain.Process, error)
}

// ProcessStatus is a process snapshot plus the connector's live view of its transfer.
type ProcessStatus struct {
	Process *domain.Process
	// TransferState and Transfer are set only when a live lookup succeeded.
	TransferState string
	Transfer      map[string]any
}

// StatusUseCase defines the read-only queries over orchestration processes.
type StatusUseCase interface {
	List(ctx context.Context) ([]*domain.Process, error)
	// Get returns one process. When clientHost is not empty and the process has a transfer,
	// the connector at clientHost is asked for the transfer's live state.
	Get(ctx context.Context, id, clientHost string) (*ProcessStatus, error)
}

// RetentionUseCase removes expired terminal processes.
type RetentionUseCase interface {
	Sweep(ctx context.Context) (int, error)
}
