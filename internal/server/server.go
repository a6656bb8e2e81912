// Package server assembles the echo instance: middleware, relay and callback
// routes, and the operational endpoints.
package server

import (
	"net/http"

	"suno-relay/internal/callbacks"
	"suno-relay/internal/handlers/relay"
	"suno-relay/internal/middleware"
	"suno-relay/internal/routers"
	"suno-relay/internal/shared"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Config struct {
	SunoBaseURL   string
	MetricsAPIKey string
}

type Deps struct {
	Upstream relay.Upstream
	Store    *callbacks.Store
	Notifier callbacks.Notifier
	Log      *zap.SugaredLogger
}

func New(cfg Config, deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Root level so preflight requests for any route get answered
	e.Use(middleware.NewCORSMiddleware())

	e.GET("/ping", func(c echo.Context) error {
		return c.String(200, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.RequireMetricsKey(cfg.MetricsAPIKey))

	base := e.Group("")
	base.Use(middleware.NewRecoverMiddleware(deps.Log))
	base.Use(middleware.NewTrackMiddleware(deps.Log))

	base.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, shared.InfoResponse{
			Message:  shared.ServiceRunningBanner,
			Upstream: cfg.SunoBaseURL,
		})
	})
	routers.RegisterRelayRoutes(base, deps.Upstream, deps.Log)
	routers.RegisterCallbackRoutes(base, deps.Store, deps.Notifier, deps.Log)
	return e
}
