package router

import (
	"github.com/fashun/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// probePaths are kept out of request logs and traces
var probePaths = []string{"/healthz", "/readyz"}

// EngineConfig configures the middleware chain of the worker's engine
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	// Meter records HTTP metrics; nil disables them
	Meter        metric.Meter
	MaxBodyBytes int64
	Logger       *zap.Logger
}

// NewEngine creates a gin engine with recovery, request ids, tracing,
// metrics, request logging and a body size limit
func NewEngine(cfg EngineConfig) *gin.Engine {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	engine := gin.New()
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
			SkipPaths:   probePaths,
		}),
		middleware.SpanEnricher(),
	)
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Meter, cfg.Logger))
	}
	engine.Use(
		middleware.RequestLogger(cfg.Logger, probePaths...),
		middleware.BodyLimit(cfg.MaxBodyBytes),
	)
	return engine
}
