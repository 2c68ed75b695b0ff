package dto

import (
	"maps"
	"time"

	"github.com/dsorch/orchestrator/internal/orchestration/domain"
	"github.com/dsorch/orchestrator/internal/orchestration/usecase"
)

// maskedCredential replaces data address credentials in responses.
const maskedCredential = "****"

// DataResponse represents one stored payload in API responses.
type DataResponse struct {
	TransferID  string    `json:"transfer_id"`
	ContractID  string    `json:"contract_id,omitempty"`
	Path        string    `json:"path"`
	ContentType string    `json:"content_type,omitempty"`
	Kind        string    `json:"kind"`
	Size        int       `json:"size"`
	Status      string    `json:"status"`
	StoredAt    time.Time `json:"stored_at"`
}

// ProcessResponse represents an orchestration process in API responses.
type ProcessResponse struct {
	OrchestrationID   string         `json:"orchestration_id"`
	Type              string         `json:"type"`
	ProcessStatus     string         `json:"process_status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Properties        map[string]any `json:"properties"`
	TransferID        string         `json:"transfer_id,omitempty"`
	ConnectorResponse map[string]any `json:"connector_response,omitempty"`
	DataAddress       map[string]any `json:"data_address,omitempty"`
	DataResponses     []DataResponse `json:"data_responses,omitempty"`
	Endpoint          string         `json:"endpoint,omitempty"`
	AuthType          string         `json:"auth_type,omitempty"`
	Error             string         `json:"error,omitempty"`

	// TransferStatus and TransferProcess carry the connector's live view, when requested.
	TransferStatus  string         `json:"transfer_status,omitempty"`
	TransferProcess map[string]any `json:"transfer_process,omitempty"`
}

// ProcessesResponse keys process views by orchestration id.
type ProcessesResponse struct {
	OrchestrationProcesses map[string]ProcessResponse `json:"orchestration_processes"`
}

// MapProcessToResponse converts a domain process to an API response.
// The data address authorization credential is masked.
func MapProcessToResponse(process *domain.Process) ProcessResponse {
	properties := process.Properties
	if properties == nil {
		properties = map[string]any{}
	}

	response := ProcessResponse{
		OrchestrationID:   process.ID,
		Type:              string(process.Type),
		ProcessStatus:     string(process.Status),
		CreatedAt:         process.CreatedAt,
		UpdatedAt:         process.UpdatedAt,
		Properties:        properties,
		TransferID:        process.TransferID,
		ConnectorResponse: process.ConnectorResponse,
		DataAddress:       maskDataAddress(process.DataAddress),
		Endpoint:          process.Endpoint,
		AuthType:          process.AuthType,
		Error:             process.Error,
	}

	if len(process.DataResponses) > 0 {
		response.DataResponses = make([]DataResponse, 0, len(process.DataResponses))
		for _, result := range process.DataResponses {
			response.DataResponses = append(response.DataResponses, DataResponse{
				TransferID:  result.TransferID,
				ContractID:  result.ContractID,
				Path:        result.Path,
				ContentType: result.ContentType,
				Kind:        result.Kind,
				Size:        result.Size,
				Status:      result.Status,
				StoredAt:    result.StoredAt,
			})
		}
	}

	return response
}

// MapProcessStatusToResponse converts a process and its live transfer view to an API response.
func MapProcessStatusToResponse(status *usecase.ProcessStatus) ProcessResponse {
	response := MapProcessToResponse(status.Process)
	response.TransferStatus = status.TransferState
	response.TransferProcess = status.Transfer
	return response
}

// MapProcessesToResponse keys the given processes by id.
func MapProcessesToResponse(processes []*domain.Process) ProcessesResponse {
	views := make(map[string]ProcessResponse, len(processes))
	for _, process := range processes {
		views[process.ID] = MapProcessToResponse(process)
	}
	return ProcessesResponse{OrchestrationProcesses: views}
}

func maskDataAddress(address map[string]any) map[string]any {
	if address == nil {
		return nil
	}
	masked := maps.Clone(address)
	if _, ok := masked["authorization"]; ok {
		masked["authorization"] = maskedCredential
	}
	return masked
}
