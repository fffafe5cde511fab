package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"assetapi/internal/logger"
)

// ErrorLocalKey holds the cause of a 5xx response for the access log.
const ErrorLocalKey = "error"

// Logger logs one structured line per request with request_id, method, path,
// status and latency in milliseconds. Server errors log at error level and
// client errors at warn.
func Logger(log *zap.Logger) fiber.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := responseStatus(c, err)
		fields := []zap.Field{
			zap.String("request_id", rid),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Float64("latency", float64(time.Since(start).Microseconds())/1000),
		}

		if cause, ok := c.Locals(ErrorLocalKey).(string); ok && cause != "" {
			fields = append(fields, zap.String("error", cause))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("http_request", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("http_request", fields...)
		default:
			log.Info("http_request", fields...)
		}

		return err
	}
}

// LoggerWithWriter is Logger writing JSON lines to w with timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logger.NewWithWriter(w, "info", loc))
}
