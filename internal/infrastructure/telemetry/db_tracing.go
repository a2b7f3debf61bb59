package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans
	SlowQueryThresh time.Duration // default: 200ms
	DBSystem        string        // default: "postgresql"
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

const queryStartKey = "fashun:query_start"

// DBTracingPlugin wraps the otelgorm plugin with slow query detection.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// Register installs otelgorm and the slow query callbacks on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("fashun:before_create", p.before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("fashun:after_create", p.after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("fashun:before_query", p.before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("fashun:after_query", p.after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("fashun:before_update", p.before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("fashun:after_update", p.after); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("fashun:before_raw", p.before); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("fashun:after_raw", p.after); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.String("db_system", p.config.DBSystem),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (p *DBTracingPlugin) after(db *gorm.DB) {
	span := trace.SpanFromContext(db.Statement.Context)

	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		if span.IsRecording() {
			span.SetStatus(codes.Error, db.Error.Error())
			span.SetAttributes(attribute.Bool("db.error", true))
		}
	}

	v, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	duration := time.Since(start)
	if duration < p.config.SlowQueryThresh {
		return
	}

	if span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", duration.Milliseconds()),
		)
	}
	p.logger.Warn("Slow database query",
		zap.String("table", db.Statement.Table),
		zap.Duration("duration", duration),
		zap.Duration("threshold", p.config.SlowQueryThresh),
		zap.Int64("rows_affected", db.RowsAffected),
	)
}
