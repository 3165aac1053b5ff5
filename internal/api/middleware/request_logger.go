package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger writes one structured access log entry per request.
// Server errors log at error level, client errors at warn.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency.Round(time.Microsecond)).
				Msg("request")
			return nil
		},
	})
}
