package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dsorch/orchestrator/internal/errors"
	"github.com/dsorch/orchestrator/internal/orchestration/domain"
	"github.com/dsorch/orchestrator/internal/orchestration/http/mocks"
)

func setupOrchestrationHandler(t *testing.T) (*OrchestrationHandler, *mocks.MockTransferUseCase) {
	t.Helper()

	mockUseCase := &mocks.MockTransferUseCase{}
	t.Cleanup(func() { mockUseCase.AssertExpectations(t) })

	return NewOrchestrationHandler(mockUseCase, discardLogger()), mockUseCase
}

func TestOrchestrationHandler_OrchestrateHandler(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Success_Service", func(t *testing.T) {
		handler, mockUseCase := setupOrchestrationHandler(t)

		body := map[string]any{
			"type":                "service",
			"contractId":          "c1",
			"counterPartyAddress": "http://provider/api/dsp",
		}
		expectedRequest := domain.ServiceRequest{Transfer: domain.TransferSpec{
			ContractID:          "c1",
			CounterPartyAddress: "http://provider/api/dsp",
		}}
		process := &domain.Process{
			ID:         "p1",
			Type:       domain.TypeService,
			Status:     domain.StatusCompleted,
			CreatedAt:  now,
			UpdatedAt:  now,
			TransferID: "t1",
			DataAddress: map[string]any{
				"endpoint":      "http://provider/public",
				"authorization": "tok",
			},
			DataResponses: []domain.DataResponse{{
				TransferID: "t1",
				Path:       "data/t1.json",
				Kind:       "json",
				Status:     domain.DataResponseStored,
				StoredAt:   now,
			}},
		}

		mockUseCase.On("Orchestrate", mock.Anything, expectedRequest, body).
			Return(process, nil).
			Once()

		c, w := createTestContext(http.MethodPost, "/orchestrate", body)
		handler.OrchestrateHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "SUCCESS", response["status"])
		assert.Equal(t, "p1", response["orchestration_id"])

		data := response["data"].(map[string]any)
		assert.Equal(t, "COMPLETED", data["process_status"])
		assert.Equal(t, "t1", data["transfer_id"])
		assert.Equal(t, "****", data["data_address"].(map[string]any)["authorization"])
		assert.Len(t, data["data_responses"], 1)
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _ := setupOrchestrationHandler(t)

		c, w := createTestContext(http.MethodPost, "/orchestrate", "{not json")
		handler.OrchestrateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "ERROR", response["status"])
		assert.Equal(t, "Missing or invalid JSON body", response["error"])
	})

	t.Run("Error_NullBody", func(t *testing.T) {
		handler, _ := setupOrchestrationHandler(t)

		c, w := createTestContext(http.MethodPost, "/orchestrate", "null")
		handler.OrchestrateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_UnsupportedType", func(t *testing.T) {
		handler, _ := setupOrchestrationHandler(t)

		c, w := createTestContext(http.MethodPost, "/orchestrate", map[string]any{"type": "batch"})
		handler.OrchestrateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "ERROR", response["status"])
		assert.Contains(t, response["details"], "only 'service', 'data' or 'combined' types are supported")
		assert.NotContains(t, response, "orchestration_id")
	})

	t.Run("Error_ValidationFailure", func(t *testing.T) {
		handler, _ := setupOrchestrationHandler(t)

		c, w := createTestContext(http.MethodPost, "/orchestrate", map[string]any{
			"type":     "data",
			"endpoint": "not a url",
		})
		handler.OrchestrateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := decodeBody(t, w)
		assert.Contains(t, response["details"], "endpoint")
	})

	t.Run("Error_FailedProcess", func(t *testing.T) {
		handler, mockUseCase := setupOrchestrationHandler(t)

		failed := &domain.Process{
			ID:     "p2",
			Type:   domain.TypeService,
			Status: domain.StatusFailed,
			Error:  "initiate transfer: upstream returned status code 500: boom",
		}
		cause := &apperrors.UpstreamError{StatusCode: http.StatusInternalServerError, Body: "boom"}

		mockUseCase.On("Orchestrate", mock.Anything, mock.Anything, mock.Anything).
			Return(failed, cause).
			Once()

		c, w := createTestContext(http.MethodPost, "/orchestrate", map[string]any{
			"type":                "service",
			"contractId":          "c1",
			"counterPartyAddress": "http://provider/api/dsp",
		})
		handler.OrchestrateHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "FAILED", response["status"])
		assert.Equal(t, "p2", response["orchestration_id"])
		assert.Equal(t, "boom", response["details"])
		assert.Equal(t, float64(500), response["status_code"])
	})

	t.Run("Error_ConnectorTimeout", func(t *testing.T) {
		handler, mockUseCase := setupOrchestrationHandler(t)

		failed := &domain.Process{ID: "p3", Type: domain.TypeService, Status: domain.StatusFailed}
		mockUseCase.On("Orchestrate", mock.Anything, mock.Anything, mock.Anything).
			Return(failed, apperrors.Wrap(apperrors.ErrUpstreamTimeout, "initiate transfer")).
			Once()

		c, w := createTestContext(http.MethodPost, "/orchestrate", map[string]any{
			"type":                "service",
			"contractId":          "c1",
			"counterPartyAddress": "http://provider/api/dsp",
		})
		handler.OrchestrateHandler(c)

		require.Equal(t, http.StatusGatewayTimeout, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "FAILED", response["status"])
		assert.Equal(t, "p3", response["orchestration_id"])
	})

	t.Run("Error_CreateFailedWithoutProcess", func(t *testing.T) {
		handler, mockUseCase := setupOrchestrationHandler(t)

		mockUseCase.On("Orchestrate", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrProcessAlreadyExists).
			Once()

		c, w := createTestContext(http.MethodPost, "/orchestrate", map[string]any{
			"type":     "data",
			"endpoint": "https://provider.example/data",
		})
		handler.OrchestrateHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, "ERROR", response["status"])
		assert.NotContains(t, response, "orchestration_id")
	})
}
