package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kristianakila/restbek2/auth"
	"github.com/kristianakila/restbek2/config"
	"github.com/kristianakila/restbek2/middleware"
	"github.com/kristianakila/restbek2/pkg/feed"
	"github.com/kristianakila/restbek2/wheel"
)

// App represents the wheel service application
type App struct {
	engine      *gin.Engine
	config      *config.Config
	logger      zerolog.Logger
	wheelEngine *wheel.Engine
	feedService *feed.Service
	httpServer  *http.Server
	onShutdown  []func()

	wheelHandler *WheelHandler
	feedHandler  *FeedHandler
}

// Options holds server configuration options
type Options struct {
	Config *config.Config
	Logger zerolog.Logger

	// Engine is the wheel engine serving all tenant operations.
	Engine *wheel.Engine

	// Feed is optional; when nil a local winner feed is created.
	Feed *feed.Service
}

// Router is an alias for gin.Engine for convenience
type Router = gin.Engine

// New creates a new wheel service application
func New(opts Options) *App {
	// Reward values marshal as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	feedService := opts.Feed
	if feedService == nil {
		feedService = feed.NewService(feed.ServiceConfig{
			BroadcastInterval: 2 * time.Second,
			Logger:            opts.Logger,
		})
	}

	app := &App{
		engine:      engine,
		config:      opts.Config,
		logger:      opts.Logger,
		wheelEngine: opts.Engine,
		feedService: feedService,
	}

	app.wheelHandler = NewWheelHandler(app)
	app.feedHandler = NewFeedHandler(app, feedService)

	return app
}

// UseCommonMiddlewares adds common middlewares to the application
func (a *App) UseCommonMiddlewares() {
	// Recovery middleware (must be first)
	a.engine.Use(middleware.Recovery(a.logger))
	a.engine.Use(middleware.TraceID())
	a.engine.Use(middleware.Logging(a.logger))

	if a.config.Server.EnableCORS {
		a.engine.Use(middleware.CORS())
	}
}

// UseMiddleware adds a custom middleware
func (a *App) UseMiddleware(m gin.HandlerFunc) {
	a.engine.Use(m)
}

// Engine returns the wheel engine
func (a *App) Engine() *wheel.Engine {
	return a.wheelEngine
}

// FeedService returns the winner feed service
func (a *App) FeedService() *feed.Service {
	return a.feedService
}

// RegisterHealthCheck adds health check endpoints
func (a *App) RegisterHealthCheck() {
	a.engine.GET("/health", a.healthCheck)
	a.engine.GET("/api/health", a.healthCheck)
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   a.config.Environment,
	})
}

// RegisterMetrics exposes Prometheus metrics.
func (a *App) RegisterMetrics() {
	a.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterWheelRoutes registers the tenant wheel API.
//
// Routes registered:
//   - GET  /api/wheel/:tenant_id/config         -> WheelHandler.GetConfig
//   - GET  /api/wheel/:tenant_id/status         -> WheelHandler.GetStatus
//   - POST /api/wheel/:tenant_id/spin           -> WheelHandler.Spin
//   - POST /api/wheel/:tenant_id/lead           -> WheelHandler.SubmitLead
//   - POST /api/wheel/:tenant_id/lead/fallback  -> WheelHandler.FallbackLead
//   - GET  /api/wheel/:tenant_id/feed           -> FeedHandler.StreamUpdates (SSE)
//   - GET  /api/wheel/:tenant_id/feed/ws        -> FeedHandler.StreamUpdatesWebSocket
func (a *App) RegisterWheelRoutes() {
	if a.wheelEngine == nil {
		a.logger.Fatal().Msg("No wheel engine configured. Pass Options.Engine to New().")
		return
	}

	wheelGroup := a.engine.Group("/api/wheel")

	// Prize list and the anonymized winner feed are public; everything that
	// touches user state requires a token.
	public := wheelGroup.Group("/:tenant_id")
	{
		public.GET("/config", a.wheelHandler.GetConfig)

		// Winner feed (SSE and WebSocket). Remote wins are fed via the
		// Kafka consumer into the shared feed service.
		public.GET("/feed", a.feedHandler.StreamUpdates)
		public.GET("/feed/ws", a.feedHandler.StreamUpdatesWebSocket)
	}

	authed := wheelGroup.Group("/:tenant_id")
	authed.Use(auth.JWTMiddleware(a.config.JWT.Secret, a.logger))
	{
		authed.GET("/status", a.wheelHandler.GetStatus)
		authed.POST("/spin", a.wheelHandler.Spin)
		authed.POST("/lead", a.wheelHandler.SubmitLead)
		authed.POST("/lead/fallback", a.wheelHandler.FallbackLead)
	}

	a.logger.Info().Msg("Wheel routes registered: /api/wheel/:tenant_id")
}

// Router returns the Gin engine for custom route registration
func (a *App) Router() *gin.Engine {
	return a.engine
}

// Group creates a route group
func (a *App) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return a.engine.Group(path, handlers...)
}

// AuthGroup creates a route group with JWT authentication
func (a *App) AuthGroup(path string) *gin.RouterGroup {
	return a.engine.Group(path, auth.JWTMiddleware(a.config.JWT.Secret, a.logger))
}

// RegisterRoutes registers custom routes using a callback
func (a *App) RegisterRoutes(fn func(*gin.Engine)) {
	fn(a.engine)
}

// OnShutdown registers a function to be called on shutdown
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Run starts the HTTP server
func (a *App) Run() error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	return a.waitForShutdown()
}

// RunWithContext starts the HTTP server with context
func (a *App) RunWithContext(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errChan:
		return err
	}
}

func (a *App) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, fn := range a.onShutdown {
		fn()
	}

	a.feedService.Stop()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Error during server shutdown")
		return err
	}

	a.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger
func (a *App) Logger() zerolog.Logger {
	return a.logger
}
