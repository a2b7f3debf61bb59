package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM's logs to zap, tagged with the delivery and trace
// that issued the query. Missing rows are not logged: the stores turn them
// into not-found results that the ledgers report as skipped.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a GORM logger. A zero slowThreshold disables slow
// query warnings.
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: slowThreshold,
	}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.forContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.forContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.forContext(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold
	if err == nil && !slow && l.level < gormlogger.Info {
		return
	}

	sql, rows := fc()
	log := l.forContext(ctx).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)

	switch {
	case err != nil:
		if l.level >= gormlogger.Error {
			log.Error("query failed", zap.Error(err))
		}
	case slow:
		if l.level >= gormlogger.Warn {
			log.Warn("slow query", zap.Duration("threshold", l.slowThreshold))
		}
	default:
		log.Debug("query")
	}
}

func (l *GormLogger) forContext(ctx context.Context) *zap.Logger {
	log := WithTraceContext(ctx, l.logger)
	if id := GetMessageID(ctx); id != "" {
		log = log.With(zap.String("message_id", id))
	}
	return log
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel maps the application log level to a GORM level; unknown
// levels fall back to warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[level]; ok {
		return l
	}
	return gormlogger.Warn
}
