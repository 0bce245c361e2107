package logger

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	obscontext "github.com/andreymarc/magnex-billing/internal/observability/context"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MiddlewareConfig tunes the request logging middleware.
type MiddlewareConfig struct {
	// SkipPaths are logged at debug level only (health and metrics probes).
	SkipPaths []string
}

// GinMiddleware assigns a request id, threads it through the request
// context, and logs a completion line per request with masked headers.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = newRequestID()
		}
		c.Header("X-Request-Id", requestID)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		log := FromContext(c.Request.Context())
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.Any("headers", MaskHeaders(c.Request.Header)),
		}

		if _, ok := skip[c.Request.URL.Path]; ok {
			log.Debug("request completed", fields...)
			return
		}
		if c.Writer.Status() >= 500 {
			log.Error("request completed", fields...)
			return
		}
		log.Info("request completed", fields...)
	}
}

func newRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "req_unknown"
	}
	return hex.EncodeToString(buf)
}
