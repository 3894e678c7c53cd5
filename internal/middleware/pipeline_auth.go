package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/logger"
)

// APIKeyHeader carries the shared secret for the pipeline routes.
const APIKeyHeader = "X-API-Key"

// PipelineAuthMiddleware guards the operational routes used by the scheduler
// and the catchup CLI. With no key configured every call is refused.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	log := logger.Named("pipeline")
	want := []byte(apiKey)

	return func(c *gin.Context) {
		if len(want) == 0 {
			writeError(c, apperrors.ErrPipelineNotConfigured)
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), want) != 1 {
			log.Warnw("rejected pipeline call",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
				"key_present", key != "",
				"request_id", c.GetString(requestIDKey),
			)
			writeError(c, apperrors.ErrInvalidAPIKey)
			return
		}

		log.Debugw("pipeline call accepted", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
		c.Next()
	}
}
