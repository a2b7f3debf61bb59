package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	appinventory "github.com/fashun/backend/internal/application/inventory"
	"github.com/fashun/backend/internal/application/lifecycle"
	apployalty "github.com/fashun/backend/internal/application/loyalty"
	"github.com/fashun/backend/internal/domain/inventory"
	"github.com/fashun/backend/internal/domain/loyalty"
	"github.com/fashun/backend/internal/domain/notification"
	"github.com/fashun/backend/internal/domain/shared"
	"github.com/fashun/backend/internal/infrastructure/cache"
	"github.com/fashun/backend/internal/infrastructure/config"
	"github.com/fashun/backend/internal/infrastructure/event"
	"github.com/fashun/backend/internal/infrastructure/logger"
	"github.com/fashun/backend/internal/infrastructure/messaging"
	notificationinfra "github.com/fashun/backend/internal/infrastructure/notification"
	"github.com/fashun/backend/internal/infrastructure/persistence"
	"github.com/fashun/backend/internal/infrastructure/telemetry"
	"github.com/fashun/backend/internal/interfaces/http/handler"
	"github.com/fashun/backend/internal/interfaces/http/router"
	"github.com/fashun/backend/internal/interfaces/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.FromConfig(cfg.App, cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer shutdownTelemetry(log, tp, mp, lp)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		_ = profiler.Stop()
	}()
	if cfg.Profiling.Enabled && cfg.Profiling.SpanProfilesEnabled {
		tp.EnableSpanProfiles()
	}

	log = lp.Bridge(log, zapcore.InfoLevel)
	log.Info("Starting order lifecycle worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("inventory_store", cfg.Lifecycle.InventoryStore),
		zap.String("notification_gateway", cfg.Lifecycle.NotificationGateway),
	)

	health := handler.NewHealthHandler(cfg.App.Name, version)

	inventoryStore, loyaltyStore, closeStores := openStores(cfg, log, health)
	defer closeStores()

	conn, err := messaging.Dial(cfg.AMQP.URL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()
	health.WithCheck("amqp", func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("connection closed")
		}
		return nil
	})

	bus := event.NewInMemoryEventBus(log.Named("events"))
	alerts := appinventory.NewStockAlertHandler(log)
	bus.Subscribe(alerts)
	bus.Subscribe(lifecycle.NewRefundFlagHandler(log))

	var (
		gateway     notification.Gateway
		backInStock appinventory.BackInStockSink
	)
	switch cfg.Lifecycle.NotificationGateway {
	case "amqp":
		publisher, err := messaging.NewRabbitPublisher(conn, cfg.AMQP.NotificationExchange)
		if err != nil {
			log.Fatal("Failed to set up notification exchange", zap.Error(err))
		}
		amqpGateway := notificationinfra.NewAMQPGateway(publisher, log.Named("notifications"))
		alerts.WithNotifier(amqpGateway)
		gateway, backInStock = amqpGateway, amqpGateway
	default:
		gateway = notificationinfra.NewLoggingGateway(log.Named("notifications"))
		backInStock = appinventory.NewLoggingBackInStockSink(log)
	}

	metrics, err := telemetry.NewLifecycleMetrics(telemetry.LifecycleMetricsConfig{
		Meter:  mp.Meter(telemetry.TracerName),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create lifecycle metrics", zap.Error(err))
	}

	inventoryLedger := appinventory.NewLedger(inventoryStore, log.Named("inventory")).WithEventPublisher(bus)
	loyaltyLedger := apployalty.NewLedger(loyaltyStore, log.Named("loyalty"))

	orchestrator := lifecycle.NewOrchestrator(gateway, inventoryLedger, loyaltyLedger, log.Named("lifecycle")).
		WithEventPublisher(bus).
		WithBackInStockSink(backInStock).
		WithMetrics(metrics).
		WithReviewRequestDelay(cfg.Lifecycle.ReviewRequestDelay)

	if cfg.Lifecycle.IdempotencyEnabled {
		store, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).
			CreateStore(ctx, cfg.Lifecycle.IdempotencyBackend)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer store.Close()
		orchestrator.WithIdempotency(store, shared.IdempotencyConfig{
			TTL:     cfg.Lifecycle.IdempotencyTTL,
			Enabled: true,
		})
	}

	events := worker.NewOrderEventHandler(orchestrator, log)
	consumer, err := messaging.NewRabbitConsumer(conn, messaging.ConsumerConfig{
		Exchange:    cfg.AMQP.OrderExchange,
		Queue:       cfg.AMQP.OrderQueue,
		RoutingKeys: events.RoutingKeys(),
		Prefetch:    cfg.AMQP.PrefetchCount,
		Workers:     cfg.AMQP.Workers,
	}, log)
	if err != nil {
		log.Fatal("Failed to set up order event queue", zap.Error(err))
	}

	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := consumer.Run(gctx, events.Handle); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("order event consumer stopped: broker channel closed")
		}
		return nil
	})
	if cfg.HTTP.Enabled {
		srv := newHTTPServer(cfg, log, mp, health, orchestrator)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("Worker stopped with error", zap.Error(err))
	}

	log.Info("Shutting down worker...")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := bus.Stop(stopCtx); err != nil {
		log.Error("Failed to stop event bus", zap.Error(err))
	}
	log.Info("Worker exited")
}

// openStores returns the inventory and loyalty stores selected by configuration
func openStores(cfg *config.Config, log *zap.Logger, health *handler.HealthHandler) (inventory.Store, loyalty.Store, func()) {
	if cfg.Lifecycle.InventoryStore == "memory" {
		log.Warn("Using in-memory stores, stock and loyalty balances are not persisted")
		return persistence.NewInMemoryInventoryStore(), persistence.NewInMemoryLoyaltyStore(), func() {}
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log.Named("gorm"),
		LogLevel: logger.MapGormLogLevel(cfg.Log.Level),
		Tracing: telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		},
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	health.WithCheck("database", func(context.Context) error {
		return db.Ping()
	})
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}
	return persistence.NewGormInventoryStore(db.DB), persistence.NewGormLoyaltyStore(db.DB), closeDB
}

// newHTTPServer builds the probe and order-event ingestion endpoints
func newHTTPServer(cfg *config.Config, log *zap.Logger, mp *telemetry.MeterProvider, health *handler.HealthHandler, engine handler.Engine) *router.Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ginEngine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		Meter:          mp.Meter("http.server"),
		Logger:         log.Named("http"),
	})
	router.NewRouter(ginEngine).
		Probe(health).
		Register(handler.NewOrderEventHandler(engine, log.Named("http"))).
		Setup()

	return router.NewServer(cfg.HTTP.Addr(), ginEngine, cfg.HTTP.ShutdownTimeout, log.Named("http"))
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Error("Failed to shut down telemetry provider", zap.Error(err))
		}
	}
}
