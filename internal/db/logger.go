package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger forwards Gorm's log output to logrus.
type GormLogger struct {
	logger *logrus.Logger
	level  logger.LogLevel
}

var _ logger.Interface = (*GormLogger)(nil)

// NewGormLogger returns a Gorm logger that writes warnings and errors through
// the provided logrus logger.
func NewGormLogger(l *logrus.Logger) *GormLogger {
	return &GormLogger{logger: l, level: logger.Warn}
}

// LogMode returns a copy of the logger with the given level.
func (g *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Info {
		g.entry(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Warn {
		g.entry(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Error {
		g.entry(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs failed and slow statements. Missing records are not errors.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= logger.Error && !eris.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.entry(ctx).WithFields(logrus.Fields{
			"sql":         sql,
			"rows":        rows,
			"duration_ms": float64(elapsed.Microseconds()) / 1000,
			"error":       err.Error(),
		}).Error("sql statement failed")
	case elapsed > slowQueryThreshold && g.level >= logger.Warn:
		sql, rows := fc()
		g.entry(ctx).WithFields(logrus.Fields{
			"sql":         sql,
			"rows":        rows,
			"duration_ms": float64(elapsed.Microseconds()) / 1000,
		}).Warn("slow sql statement")
	case g.level >= logger.Info:
		sql, rows := fc()
		g.entry(ctx).WithFields(logrus.Fields{
			"sql":  sql,
			"rows": rows,
		}).Debug("sql statement")
	}
}

func (g *GormLogger) entry(ctx context.Context) *logrus.Entry {
	return g.logger.WithContext(ctx).WithField("component", "gorm")
}
