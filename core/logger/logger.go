package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a sugared zap logger so components can take it as an explicit
// dependency instead of reaching for the package-level default.
type Logger struct {
	s *zap.SugaredLogger
}

var std = newDefault()

func newDefault() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return &Logger{s: l.Sugar()}
}

// Init replaces the default logger with one at the given level. Call once at
// boot, before anything logs.
func Init(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	std = &Logger{s: l.Sugar()}
	return nil
}

// Default returns the process-wide logger, for handing to components that
// take their logger via constructor.
func Default() *Logger {
	return std
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.s.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.s.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l *Logger) Sync() error {
	return l.s.Sync()
}

func Debug(msg string, keysAndValues ...any) { std.Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { std.Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { std.Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { std.Error(msg, keysAndValues...) }

// Sync flushes buffered log entries. Call via defer in main.
func Sync() error { return std.Sync() }
