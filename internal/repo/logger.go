package repo

import (
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

// zerologWriter adapts a zerolog.Logger to GORM's logger.Writer.
type zerologWriter struct {
	l   zerolog.Logger
	lvl zerolog.Level
}

func (w zerologWriter) Printf(format string, args ...any) {
	w.l.WithLevel(w.lvl).Msgf(format, args...)
}

// NewGormLogger routes GORM's messages (slow queries, errors and, at debug
// level, every statement) through zerolog under the "gorm" component.
func NewGormLogger(l zerolog.Logger) gormlogger.Interface {
	level := gormlogger.Warn
	lvl := zerolog.WarnLevel
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		level = gormlogger.Info
		lvl = zerolog.DebugLevel
	}
	return gormlogger.New(
		zerologWriter{l: l.With().Str("component", "gorm").Logger(), lvl: lvl},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
