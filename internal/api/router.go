package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/api/handler"
	"github.com/hitpoints/hitpoints-service/internal/api/middleware"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Service     ports.CharacterService
	Feed        ports.ChangeFeed
	Checks      map[string]handler.Check
	CORSOrigins []string
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, middleware.IdempotencyKeyHeader},
		AllowCredentials: true,
	}))

	// --- Characters ---
	characters := handler.NewCharacterHandler(d.Service)
	live := handler.NewLiveHandler(d.Feed, d.CORSOrigins, d.Log)

	g := e.Group("/characters")
	g.GET("", characters.List)
	g.GET("/live", live.WebSocket)
	g.GET("/events", live.Events)
	g.GET("/:id", characters.Get)

	idem := middleware.IdempotencyKey()
	g.POST("/damage", characters.DealDamage, idem)
	g.POST("/heal", characters.Heal, idem)
	g.POST("/temporary-hit-points", characters.AddTemporaryHitPoints, idem)

	// --- Health probes and metrics ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewHealthDependenciesHandler(d.Checks).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
