package resd

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hydronet-sim/reservoir-core/pkg/logger"
	"github.com/hydronet-sim/reservoir-core/pkg/utils"
)

// RequestLogger logs one line per request through the package logger and
// tags the response with a generated request id.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := utils.GenerateRequestID()
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		logger.Info("http request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP())
	}
}

// Recovery converts handler panics into JSON 500 responses.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("handler panic",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
	})
}
