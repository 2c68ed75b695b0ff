// Package dto provides data transfer objects for orchestration request and response handling.
package dto

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"

	apperrors "github.com/dsorch/orchestrator/internal/errors"
	"github.com/dsorch/orchestrator/internal/orchestration/domain"
	customValidation "github.com/dsorch/orchestrator/internal/validation"
)

// ServiceRequest is the body of a "service" orchestration.
// contract_agreement_id is accepted as an alias of contractId.
type ServiceRequest struct {
	ContractID          string         `json:"contractId" mapstructure:"contractId"`
	ContractAgreementID string         `json:"contract_agreement_id" mapstructure:"contract_agreement_id"`
	CounterPartyAddress string         `json:"counterPartyAddress" mapstructure:"counterPartyAddress"`
	ConnectorID         string         `json:"connectorId" mapstructure:"connectorId"`
	AssetID             string         `json:"assetId" mapstructure:"assetId"`
	Properties          map[string]any `json:"properties" mapstructure:"properties"`
}

// Validate checks if the service request is valid.
func (r *ServiceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ContractID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.CounterPartyAddress, validation.Required, is.RequestURL),
		validation.Field(&r.ConnectorID, customValidation.NoWhitespace),
	)
}

func (r *ServiceRequest) resolve() {
	if r.ContractID == "" {
		r.ContractID = r.ContractAgreementID
	}
}

// DataRequest is the body of a "data" registration.
type DataRequest struct {
	Endpoint   string         `json:"endpoint" mapstructure:"endpoint"`
	AuthType   string         `json:"auth_type" mapstructure:"auth_type"`
	Properties map[string]any `json:"properties" mapstructure:"properties"`
}

// Validate checks if the data request is valid.
func (r *DataRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Endpoint, validation.Required, is.RequestURL),
		validation.Field(&r.AuthType, validation.Required, customValidation.OneOf(domain.AuthTypes...)),
	)
}

func (r *DataRequest) resolve() {
	if r.AuthType == "" {
		r.AuthType = domain.DefaultAuthType
	}
}

// CombinedEntry is one transfer of a "combined" orchestration.
type CombinedEntry struct {
	ContractID          string         `json:"contractId" mapstructure:"contractId"`
	ContractAgreementID string         `json:"contract_agreement_id" mapstructure:"contract_agreement_id"`
	CounterPartyAddress string         `json:"counterPartyAddress" mapstructure:"counterPartyAddress"`
	ConnectorID         string         `json:"connectorId" mapstructure:"connectorId"`
	AssetID             string         `json:"assetId" mapstructure:"assetId"`
	Properties          map[string]any `json:"properties" mapstructure:"properties"`
}

// Validate checks if the entry is valid once defaults were applied.
func (e CombinedEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ContractID, validation.Required, customValidation.NotBlank),
		validation.Field(&e.CounterPartyAddress, validation.Required, is.RequestURL),
		validation.Field(&e.ConnectorID, customValidation.NoWhitespace),
	)
}

// CombinedRequest is the body of a "combined" orchestration. Top-level counterPartyAddress
// and connectorId apply to entries that omit them.
type CombinedRequest struct {
	CounterPartyAddress string          `json:"counterPartyAddress" mapstructure:"counterPartyAddress"`
	ConnectorID         string          `json:"connectorId" mapstructure:"connectorId"`
	Properties          map[string]any  `json:"properties" mapstructure:"properties"`
	Entries             []CombinedEntry `json:"entries" mapstructure:"entries"`
}

// Validate checks if the combined request and each of its entries are valid.
func (r *CombinedRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Entries, validation.Required, validation.Length(1, 0)),
	)
}

func (r *CombinedRequest) resolve() {
	for i := range r.Entries {
		entry := &r.Entries[i]
		if entry.ContractID == "" {
			entry.ContractID = entry.ContractAgreementID
		}
		if entry.CounterPartyAddress == "" {
			entry.CounterPartyAddress = r.CounterPartyAddress
		}
		if entry.ConnectorID == "" {
			entry.ConnectorID = r.ConnectorID
		}
	}
}

// ParseOrchestrateRequest resolves a decoded JSON body into a validated workflow request.
// Every failure wraps ErrInvalidInput.
func ParseOrchestrateRequest(body map[string]any) (domain.Request, error) {
	rawType, ok := body["type"].(string)
	if !ok {
		return nil, domain.ErrUnsupportedType
	}
	processType, err := domain.ParseType(rawType)
	if err != nil {
		return nil, err
	}

	switch processType {
	case domain.TypeService:
		var req ServiceRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		req.resolve()
		if err := req.Validate(); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		return domain.ServiceRequest{Transfer: domain.TransferSpec{
			ContractID:          req.ContractID,
			CounterPartyAddress: req.CounterPartyAddress,
			ConnectorID:         req.ConnectorID,
			AssetID:             req.AssetID,
			Properties:          req.Properties,
		}}, nil

	case domain.TypeData:
		var req DataRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		req.resolve()
		if err := req.Validate(); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		return domain.DataRequest{
			Endpoint:   req.Endpoint,
			AuthType:   req.AuthType,
			Properties: req.Properties,
		}, nil

	default:
		var req CombinedRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		req.resolve()
		if err := req.Validate(); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		entries := make([]domain.TransferSpec, 0, len(req.Entries))
		for _, entry := range req.Entries {
			entries = append(entries, domain.TransferSpec{
				ContractID:          entry.ContractID,
				CounterPartyAddress: entry.CounterPartyAddress,
				ConnectorID:         entry.ConnectorID,
				AssetID:             entry.AssetID,
				Properties:          entry.Properties,
			})
		}
		return domain.CombinedRequest{Entries: entries, Properties: req.Properties}, nil
	}
}

func decode(body map[string]any, target any) error {
	if err := mapstructure.Decode(body, target); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("malformed request body: %v", err))
	}
	return nil
}
