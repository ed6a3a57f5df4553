package router

import (
	"fmt"
	"time"

	"github.com/erp/websync/internal/infrastructure/config"
	"github.com/erp/websync/internal/infrastructure/logger"
	"github.com/erp/websync/internal/infrastructure/telemetry"
	"github.com/erp/websync/internal/interfaces/http/handler"
	"github.com/erp/websync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// quietPrefixes are logged at debug level when successful; the UI polls
// progress every second
var quietPrefixes = []string{"/health", "/api/v1/sync/"}

// EngineConfig holds everything NewEngine needs besides the handlers
type EngineConfig struct {
	Logger         *zap.Logger
	HTTP           config.HTTPConfig
	Tracing        middleware.TracingConfig
	MeterProvider  *telemetry.MeterProvider
	Profiling      bool // attach route pprof labels
	RequestTimeout time.Duration
}

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	System *handler.SystemHandler
	Sync   *handler.SyncHandler
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(
		middleware.RequestID(),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		logger.Recovery(cfg.Logger),
		logger.GinMiddleware(cfg.Logger, quietPrefixes...),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: cfg.MeterProvider,
			Enabled:       true,
			Logger:        cfg.Logger,
		}),
		middleware.ProfilingLabels(cfg.Profiling, "/health"),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.RequestTimeout),
	)

	engine.GET("/health", h.System.Health)

	systemRoutes := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	// static segments first so they are never read as a resource type
	syncRoutes := NewDomainGroup("sync", "/sync").
		GET("/checkpoints", h.Sync.Checkpoints).
		GET("/runs", h.Sync.Runs).
		POST("/:type", h.Sync.Trigger).
		GET("/:type", h.Sync.Progress)

	r := NewRouter(engine, "v1").Register(systemRoutes, syncRoutes)
	r.Setup()

	for _, g := range []*DomainGroup{systemRoutes, syncRoutes} {
		cfg.Logger.Debug("HTTP route group mounted",
			zap.String("group", g.Name()),
			zap.String("base_path", r.BasePath()),
			zap.Strings("routes", g.Routes()),
		)
	}

	return engine, nil
}
