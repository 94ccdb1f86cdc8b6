package db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// DBLogConfig configures the zerolog backed gorm logger
type DBLogConfig struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
	ParameterizedQueries      bool
	LogLevel                  logger.LogLevel
	ZeroLogger                zerolog.Logger
}

type dbLogger struct {
	DBLogConfig
}

func NewDBLogger(config DBLogConfig) logger.Interface {
	return &dbLogger{DBLogConfig: config}
}

func zeroLogToGormLevel(level zerolog.Level) logger.LogLevel {
	switch level {
	case zerolog.WarnLevel:
		return logger.Warn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return logger.Error
	case zerolog.Disabled:
		return logger.Silent
	default:
		return logger.Info
	}
}

func (l *dbLogger) LogMode(level logger.LogLevel) logger.Interface {
	newlogger := *l
	newlogger.LogLevel = level
	return &newlogger
}

func (l *dbLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Info {
		l.ZeroLogger.Info().Ctx(ctx).Msgf(msg, data...)
	}
}

func (l *dbLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Warn {
		l.ZeroLogger.Warn().Ctx(ctx).Msgf(msg, data...)
	}
}

func (l *dbLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Error {
		l.ZeroLogger.Error().Ctx(ctx).Msgf(msg, data...)
	}
}

// Trace logs a finished statement as a structured event
func (l *dbLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	var event *zerolog.Event
	switch {
	case err != nil && l.LogLevel >= logger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		event = l.ZeroLogger.Error().Err(err)
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger.Warn:
		event = l.ZeroLogger.Warn().Dur("slow_threshold", l.SlowThreshold)
	case l.LogLevel == logger.Info:
		event = l.ZeroLogger.Debug()
	default:
		return
	}

	sql, rows := fc()
	event = event.Ctx(ctx).
		Str("caller", utils.FileWithLineNum()).
		Float64("elapsed_ms", float64(elapsed.Nanoseconds())/1e6).
		Str("sql", sql)
	if rows >= 0 {
		event = event.Int64("rows", rows)
	}
	event.Msg("sql")
}

// ParamsFilter drops query parameters from logged statements when configured
func (l *dbLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.ParameterizedQueries {
		return sql, nil
	}
	return sql, params
}
