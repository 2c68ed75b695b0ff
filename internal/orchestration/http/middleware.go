// Package http provides HTTP handlers for orchestration and status queries.
package http

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gin-gonic/gin"

	apperrors "github.com/dsorch/orchestrator/internal/errors"
	"github.com/dsorch/orchestrator/internal/httputil"
)

// APIKeyHeader carries the shared secret on orchestration requests.
const APIKeyHeader = "X-Api-Key"

var (
	errMissingAPIKey = apperrors.Wrap(apperrors.ErrUnauthorized, "no API key provided")
	errInvalidAPIKey = apperrors.Wrap(apperrors.ErrForbidden, "invalid API key")
)

// APIKeyMiddleware rejects requests whose X-Api-Key header does not match apiKey.
//
// Error handling:
//   - Missing header → 401 Unauthorized
//   - Wrong key → 403 Forbidden
//
// Rejected requests never reach the handler, so no process is created for them.
func APIKeyMiddleware(apiKey string, logger *slog.Logger) gin.HandlerFunc {
	expected := []byte(apiKey)

	return func(c *gin.Context) {
		provided := c.GetHeader(APIKeyHeader)
		if provided == "" {
			logger.Debug("authentication failed: missing api key header")
			httputil.HandleErrorGin(c, errMissingAPIKey, logger)
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			logger.Debug("authentication failed: api key mismatch")
			httputil.HandleErrorGin(c, errInvalidAPIKey, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
