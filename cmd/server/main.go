package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	integrationapp "github.com/erp/websync/internal/application/integration"
	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/config"
	"github.com/erp/websync/internal/infrastructure/ecommerce"
	"github.com/erp/websync/internal/infrastructure/lock"
	"github.com/erp/websync/internal/infrastructure/logger"
	"github.com/erp/websync/internal/infrastructure/migration"
	"github.com/erp/websync/internal/infrastructure/persistence"
	"github.com/erp/websync/internal/infrastructure/scheduler"
	"github.com/erp/websync/internal/infrastructure/telemetry"
	"github.com/erp/websync/internal/interfaces/http/handler"
	"github.com/erp/websync/internal/interfaces/http/middleware"
	"github.com/erp/websync/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			ERP Storefront Sync API
//	@version		1.0
//	@description	Pulls products and orders from the configured storefronts into the ERP
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.Int("storefronts", len(cfg.Sync.Storefronts)),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFromApp(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, log.Level())

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFromApp(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfigFromApp(cfg.Profiling), log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFromApp(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.NewGormLoggerFromConfig(log, cfg))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	// the sqlite dev database has no separate migrate step
	if db.Driver == "sqlite" {
		if err := migrateEmbedded(db, log); err != nil {
			log.Fatal("Failed to migrate sqlite database", zap.Error(err))
		}
	}

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFromApp(cfg), log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Warn("Database metrics disabled", zap.Error(err))
	}

	webProducts := persistence.NewGormWebProductRepository(db.DB)
	skus := persistence.NewGormSkuRepository(db.DB)
	webOrders := persistence.NewGormWebOrderRepository(db.DB)
	checkpoints := persistence.NewGormSyncCheckpointRepository(db.DB)
	lots := persistence.NewGormInventoryLotRepository(db.DB)

	clientCfg := ecommerce.DefaultClientConfig()
	if cfg.Sync.PageSize > 0 {
		clientCfg.PageSize = cfg.Sync.PageSize
	}
	if cfg.Sync.RequestTimeout > 0 {
		clientCfg.RequestTimeout = cfg.Sync.RequestTimeout
	}
	feed, err := ecommerce.NewStorefrontClient(clientCfg, log.Named("storefront"))
	if err != nil {
		log.Fatal("Failed to create storefront client", zap.Error(err))
	}

	var coordinatorOpts []integrationapp.CoordinatorOption
	if meterProvider.IsEnabled() {
		syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
			Meter:  meterProvider.Meter("websync"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Sync metrics disabled", zap.Error(err))
		} else {
			coordinatorOpts = append(coordinatorOpts, integrationapp.WithSyncMetrics(syncMetrics))
		}
	}

	coordinator := integrationapp.NewSyncCoordinator(
		integrationapp.CoordinatorConfig{
			Storefronts:    storefronts(cfg.Sync.Storefronts),
			OrderBatchSize: cfg.Sync.OrderBatchSize,
		},
		feed,
		integrationapp.NewCatalogReconciler(webProducts, skus, log),
		integrationapp.NewOrderReconciler(webOrders, lots, log),
		integrationapp.NewOrderCountRollup(webOrders, webProducts, cfg.Sync.CountedOrderStatuses),
		webProducts,
		webOrders,
		checkpoints,
		log.Named("sync"),
		coordinatorOpts...,
	)

	locker, closeLocker := runLocker(cfg, log)
	defer closeLocker()

	syncService := integrationapp.NewSyncService(
		integrationapp.NewProgressTracker(cfg.Sync.LogLimit),
		coordinator,
		checkpoints,
		log.Named("sync"),
		integrationapp.WithRunLocker(locker, cfg.Sync.LockTTL),
	)

	runnerCfg := scheduler.DefaultSyncRunnerConfig()
	if cfg.Sync.Workers > 0 {
		runnerCfg.Workers = cfg.Sync.Workers
	}
	if cfg.Sync.QueueSize > 0 {
		runnerCfg.QueueSize = cfg.Sync.QueueSize
	}
	if cfg.Sync.JobTimeout > 0 {
		runnerCfg.JobTimeout = cfg.Sync.JobTimeout
	}
	if cfg.Sync.HistorySize > 0 {
		runnerCfg.HistorySize = cfg.Sync.HistorySize
	}
	runner, err := scheduler.NewSyncRunner(runnerCfg, syncService, log.Named("runner"))
	if err != nil {
		log.Fatal("Failed to create sync runner", zap.Error(err))
	}
	syncService.SetDispatcher(runner)
	if err := runner.Start(ctx); err != nil {
		log.Fatal("Failed to start sync runner", zap.Error(err))
	}

	var autoTrigger *scheduler.AutoSyncTrigger
	if cfg.Sync.AutoInterval > 0 {
		triggerCfg := scheduler.DefaultAutoSyncTriggerConfig()
		triggerCfg.Interval = cfg.Sync.AutoInterval
		autoTrigger, err = scheduler.NewAutoSyncTrigger(triggerCfg, syncService, log.Named("auto_sync"))
		if err != nil {
			log.Fatal("Failed to create auto sync trigger", zap.Error(err))
		}
		if err := autoTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start auto sync trigger", zap.Error(err))
		}
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = tracerProvider.IsEnabled()
	if cfg.Telemetry.ServiceName != "" {
		tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		HTTP:           cfg.HTTP,
		Tracing:        tracingCfg,
		MeterProvider:  meterProvider,
		Profiling:      profiler.IsEnabled(),
		RequestTimeout: cfg.HTTP.WriteTimeout,
	}, router.Handlers{
		System: handler.NewSystemHandler(cfg.App.Name, version, db, runner),
		Sync:   handler.NewSyncHandler(syncService),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if autoTrigger != nil {
		if err := autoTrigger.Stop(shutdownCtx); err != nil {
			log.Warn("Auto sync trigger did not stop cleanly", zap.Error(err))
		}
	}
	if err := runner.Stop(shutdownCtx); err != nil {
		log.Warn("Sync runner did not stop cleanly", zap.Error(err))
	}
	stop()
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler did not stop cleanly", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	// flushed last so the shutdown records above are exported
	_ = loggerProvider.Shutdown(context.Background())
}

// storefronts maps the configured storefront list onto the domain type.
// Incomplete entries are kept; the coordinator skips them with a notice.
func storefronts(list []config.StorefrontConfig) []integration.Storefront {
	out := make([]integration.Storefront, 0, len(list))
	for _, sf := range list {
		out = append(out, integration.Storefront{
			Name:    sf.Name,
			BaseURL: sf.BaseURL,
			Key:     sf.Key,
			Secret:  sf.Secret,
		})
	}
	return out
}

// runLocker returns the Redis lock when sync.distributed_lock is set and the
// in-process lock otherwise
func runLocker(cfg *config.Config, log *zap.Logger) (integrationapp.RunLocker, func()) {
	if !cfg.Sync.DistributedLock {
		return lock.NewLocalLock(), func() {}
	}

	redisLock, err := lock.NewRedisLock(lock.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect run lock to Redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
	}
	log.Info("Distributed run lock enabled", zap.String("addr", cfg.Redis.Addr()))
	return redisLock, func() {
		if err := redisLock.Close(); err != nil {
			log.Warn("Error closing Redis lock", zap.Error(err))
		}
	}
}

func migrateEmbedded(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.SQL()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, db.Driver, "", log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared connection
	return m.Up()
}
