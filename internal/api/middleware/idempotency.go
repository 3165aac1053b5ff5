package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IdempotencyKeyHeader is the optional header naming a command for replay detection.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// IdempotencyKey rejects malformed Idempotency-Key headers before they reach
// a handler. A missing header is allowed.
func IdempotencyKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(IdempotencyKeyHeader)
			if key == "" {
				return next(c)
			}
			if len(key) > maxIdempotencyKeyLen {
				return echo.NewHTTPError(http.StatusBadRequest, "idempotency key too long")
			}
			for _, r := range key {
				if r < 0x21 || r > 0x7e {
					return echo.NewHTTPError(http.StatusBadRequest, "idempotency key must be printable ASCII without spaces")
				}
			}
			return next(c)
		}
	}
}
