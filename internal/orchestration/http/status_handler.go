package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	jvalidation "github.com/jellydator/validation"

	apperrors "github.com/dsorch/orchestrator/internal/errors"
	"github.com/dsorch/orchestrator/internal/httputil"
	"github.com/dsorch/orchestrator/internal/orchestration/http/dto"
	"github.com/dsorch/orchestrator/internal/orchestration/usecase"
	customValidation "github.com/dsorch/orchestrator/internal/validation"
)

// StatusHandler answers read-only queries over orchestration processes.
type StatusHandler struct {
	statusUseCase usecase.StatusUseCase
	logger        *slog.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(statusUseCase usecase.StatusUseCase, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		statusUseCase: statusUseCase,
		logger:        logger,
	}
}

// ListHandler returns every known process keyed by orchestration id.
// GET /status?offset=0&limit=50
func (h *StatusHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error()), h.logger)
		return
	}

	processes, err := h.statusUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	processes = httputil.Paginate(processes, offset, limit)
	httputil.SuccessGin(c, http.StatusOK, "", dto.MapProcessesToResponse(processes))
}

// GetHandler returns one process.
// GET /status/:orchestration_id?clientIp=host:port
// When clientIp is given the connector at that address is asked for the live transfer state.
func (h *StatusHandler) GetHandler(c *gin.Context) {
	orchestrationID := c.Param("orchestration_id")

	clientHost := c.Query("clientIp")
	if clientHost != "" {
		if err := jvalidation.Validate(clientHost, customValidation.HostPort); err != nil {
			httputil.HandleErrorGin(
				c,
				apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("clientIp: %s", err.Error())),
				h.logger,
			)
			return
		}
	}

	status, err := h.statusUseCase.Get(c.Request.Context(), orchestrationID, clientHost)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.SuccessGin(c, http.StatusOK, status.Process.ID, dto.MapProcessStatusToResponse(status))
}
