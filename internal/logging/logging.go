// Package logging builds the zap loggers used across the bridge and adapts
// host-supplied log sinks into zap cores.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MessageLevel is the severity scale exposed to embedding hosts.
type MessageLevel int

const (
	LevelTrace MessageLevel = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

func (l MessageLevel) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("MessageLevel(%d)", int(l))
	}
}

// ParseLevel accepts the level names used in configuration files.
func ParseLevel(s string) (MessageLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error", "err":
		return LevelError, nil
	case "critical", "fatal":
		return LevelCritical, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ZapLevel maps l onto zap. Trace has no zap counterpart and shares Debug.
func (l MessageLevel) ZapLevel() zapcore.Level {
	switch l {
	case LevelTrace, LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DPanicLevel
	}
}

// FromZapLevel is the inverse of ZapLevel.
func FromZapLevel(l zapcore.Level) MessageLevel {
	switch {
	case l <= zapcore.DebugLevel:
		return LevelDebug
	case l == zapcore.InfoLevel:
		return LevelInfo
	case l == zapcore.WarnLevel:
		return LevelWarning
	case l == zapcore.ErrorLevel:
		return LevelError
	default:
		return LevelCritical
	}
}

// Options configures New.
type Options struct {
	Level       MessageLevel
	Development bool
	// Sink, when set, replaces zap's own output.
	Sink Sink
}

// New builds a logger. Development loggers are human readable; production
// loggers emit JSON. Neither panics on DPanic outside development mode.
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(opts.Level.ZapLevel())

	if opts.Sink != nil {
		return zap.New(NewSinkCore(opts.Sink, level)), nil
	}

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = level

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
