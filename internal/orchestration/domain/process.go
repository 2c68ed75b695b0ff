// Package domain defines the orchestration process model, its state machine and the
// workflow request variants accepted by the orchestrator.
package domain

import (
	"maps"
	"slices"
	"time"
)

// Status is the lifecycle state of an orchestration process.
type Status string

// Process statuses.
const (
	StatusInitializing         Status = "INITIALIZING"
	StatusInitiated            Status = "INITIATED"
	StatusAssetRegistered      Status = "ASSET_REGISTERED"
	StatusRegistered           Status = "REGISTERED"
	StatusDataAddressRetrieved Status = "DATA_ADDRESS_RETRIEVED"
	StatusCompleted            Status = "COMPLETED"
	StatusFailed               Status = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the lifecycle. Registration variants share a rank.
func (s Status) rank() int {
	switch s {
	case StatusInitializing:
		return 0
	case StatusInitiated, StatusAssetRegistered, StatusRegistered:
		return 1
	case StatusDataAddressRetrieved:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	default:
		return -1
	}
}

// Type is the workflow variant a process originated from.
type Type string

// Workflow variants.
const (
	TypeService  Type = "service"
	TypeData     Type = "data"
	TypeCombined Type = "combined"
)

// ParseType validates a workflow variant name.
func ParseType(value string) (Type, error) {
	switch Type(value) {
	case TypeService, TypeData, TypeCombined:
		return Type(value), nil
	default:
		return "", ErrUnsupportedType
	}
}

// DataResponseStored marks an entry whose payload was persisted.
const DataResponseStored = "STORED"

// DataResponse is the result of one processed data entry.
type DataResponse struct {
	TransferID  string
	ContractID  string
	Path        string
	ContentType string
	Kind        string
	Size        int
	Status      string
	StoredAt    time.Time
}

// Process is one tracked orchestration.
//
// Map-valued fields hold decoded JSON payloads. They are assigned whole and never
// mutated in place, so copies may share them.
type Process struct {
	ID              string
	Status          Status
	Type            Type
	OriginalRequest map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// TransferID is set once the connector accepted a transfer (the latest one for combined requests).
	TransferID        string
	ConnectorResponse map[string]any
	DataAddress       map[string]any
	DataResponses     []DataResponse

	// Error holds the failure detail, set only when Status is FAILED.
	Error string

	// Endpoint, AuthType and Properties echo the registration request.
	Endpoint   string
	AuthType   string
	Properties map[string]any
}

// NewProcess creates a process in the INITIALIZING state.
func NewProcess(id string, processType Type, originalRequest map[string]any, now time.Time) *Process {
	return &Process{
		ID:              id,
		Status:          StatusInitializing,
		Type:            processType,
		OriginalRequest: originalRequest,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Advance moves the process forward to next. A target earlier in the lifecycle than the
// current status leaves the status unchanged, so a process never moves backwards.
// Terminal processes reject every change.
func (p *Process) Advance(next Status) error {
	if p.Status.IsTerminal() {
		return ErrProcessTerminal
	}
	if next.rank() > p.Status.rank() {
		p.Status = next
	}
	return nil
}

// Fail moves the process to FAILED recording detail.
func (p *Process) Fail(detail string) error {
	if p.Status.IsTerminal() {
		return ErrProcessTerminal
	}
	p.Status = StatusFailed
	p.Error = detail
	return nil
}

// Clone returns a copy that can be read without holding the store lock.
func (p *Process) Clone() *Process {
	clone := *p
	clone.OriginalRequest = maps.Clone(p.OriginalRequest)
	clone.ConnectorResponse = maps.Clone(p.ConnectorResponse)
	clone.DataAddress = maps.Clone(p.DataAddress)
	clone.Properties = maps.Clone(p.Properties)
	clone.DataResponses = slices.Clone(p.DataResponses)
	return &clone
}
