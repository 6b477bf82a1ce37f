package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/adrecipro/adquiz/internal/api/handler"
	"github.com/adrecipro/adquiz/internal/api/middleware"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

// Dependencies are the services and settings the HTTP layer is built from.
type Dependencies struct {
	Ledger      ports.LedgerService
	Ads         ports.AdService
	Feed        ports.FeedService
	Publication ports.PublicationService
	Resolution  ports.ResolutionService
	Counters    ports.CounterSink

	JWTSecret string
	// MediaDir, when set, is served under /media for locally stored images.
	MediaDir string
	// Ready lists the dependencies checked by /health/ready.
	Ready map[string]handler.PingFunc

	// Registerer and Gatherer default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: deps.Registerer,
	}))

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Ready)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if deps.MediaDir != "" {
		e.Static("/media", deps.MediaDir)
	}

	// --- Handlers ---
	profileHandler := handler.NewProfileHandler(deps.Ledger, deps.Ads, deps.Log)
	feedHandler := handler.NewFeedHandler(deps.Feed)
	adHandler := handler.NewAdHandler(deps.Publication, deps.Ads, deps.Resolution, deps.Counters)
	quizHandler := handler.NewQuizHandler(deps.Publication)

	v1 := e.Group("/v1",
		middleware.Auth(deps.JWTSecret),
		middleware.Identity(deps.Ledger, deps.Log),
	)

	me := v1.Group("/me")
	me.GET("", profileHandler.Me)
	me.PATCH("", profileHandler.UpdateMe)
	me.GET("/ads", profileHandler.MyAds)
	me.GET("/balance/stream", profileHandler.BalanceStream)

	v1.GET("/feed/next", feedHandler.Next)
	v1.POST("/quizzes/draft", quizHandler.Draft)

	ads := v1.Group("/ads")
	ads.POST("", adHandler.Publish)
	ads.PATCH("/:id/active", adHandler.SetActive)
	ads.DELETE("/:id", adHandler.Delete)
	ads.POST("/:id/answer", adHandler.Answer)
	ads.POST("/:id/skip", adHandler.Skip)
	ads.POST("/:id/click", adHandler.Click)

	return e
}
