package handlers

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"
)

// RequestLogger logs every request with its status and duration. Server
// errors are logged at error level, the rest at debug.
func RequestLogger(log *zap.Logger) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		start := time.Now()
		err := e.Next()

		fields := []zap.Field{
			zap.String("method", e.Request.Method),
			zap.String("path", e.Request.URL.Path),
			zap.Int("status", e.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if site := e.Request.PathValue("siteId"); site != "" {
			fields = append(fields, zap.String("site", site))
		}
		switch {
		case err != nil:
			log.Error("request failed", append(fields, zap.Error(err))...)
		case e.Status() >= 500:
			log.Error("request", fields...)
		default:
			log.Debug("request", fields...)
		}
		return err
	}
}
