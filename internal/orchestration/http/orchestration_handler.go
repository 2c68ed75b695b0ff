package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dsorch/orchestrator/internal/httputil"
	"github.com/dsorch/orchestrator/internal/orchestration/http/dto"
	"github.com/dsorch/orchestrator/internal/orchestration/usecase"
)

var errEmptyBody = errors.New("request body must be a JSON object")

// OrchestrationHandler accepts orchestration requests and runs them to completion.
type OrchestrationHandler struct {
	transferUseCase usecase.TransferUseCase
	logger          *slog.Logger
}

// NewOrchestrationHandler creates a new orchestration handler.
func NewOrchestrationHandler(transferUseCase usecase.TransferUseCase, logger *slog.Logger) *OrchestrationHandler {
	return &OrchestrationHandler{
		transferUseCase: transferUseCase,
		logger:          logger,
	}
}

// OrchestrateHandler runs one orchestration.
// POST /orchestrate - Requires X-Api-Key.
// Returns 200 OK with the final process view. Failures recorded on a process answer
// with a FAILED envelope carrying its orchestration id.
func (h *OrchestrationHandler) OrchestrateHandler(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if body == nil {
		httputil.HandleBadRequestGin(c, errEmptyBody, h.logger)
		return
	}

	req, err := dto.ParseOrchestrateRequest(body)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	process, err := h.transferUseCase.Orchestrate(c.Request.Context(), req, body)
	if err != nil {
		orchestrationID := ""
		if process != nil {
			orchestrationID = process.ID
		}
		httputil.HandleProcessErrorGin(c, err, orchestrationID, h.logger)
		return
	}

	httputil.SuccessGin(c, http.StatusOK, process.ID, dto.MapProcessToResponse(process))
}
