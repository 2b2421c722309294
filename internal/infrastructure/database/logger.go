package database

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SlowQueryThreshold is the duration above which a statement is logged at warn.
const SlowQueryThreshold = 500 * time.Millisecond

// Logger adapts gorm's logger to the global zerolog logger. Record-not-found is not an error
// here: services turn it into ErrNotFound.
type Logger struct {
	Slow  time.Duration
	Level gormlogger.LogLevel
}

func NewLogger(slow time.Duration) *Logger {
	return &Logger{Slow: slow, Level: gormlogger.Warn}
}

func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.Level = level
	return &cp
}

func (l *Logger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Info {
		log.Info().Msgf(msg, args...)
	}
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Warn {
		log.Warn().Msgf(msg, args...)
	}
}

func (l *Logger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Error {
		log.Error().Msgf(msg, args...)
	}
}

func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	var ev *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.Level >= gormlogger.Error:
		ev = log.Error().Err(err)
	case l.Slow > 0 && elapsed > l.Slow && l.Level >= gormlogger.Warn:
		ev = log.Warn().Bool("slow", true)
	case l.Level >= gormlogger.Info:
		ev = log.Debug()
	default:
		return
	}
	sql, rows := fc()
	ev.Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("gorm")
}
