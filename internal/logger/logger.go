// Package logger wraps zap with the setup shared by the server and client
// binaries.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger holds the process-wide zap logger. Log is a no-op logger until
// Init succeeds, so it is always safe to use.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger backed by a no-op zap logger.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// FileOptions configures rotation of the optional log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Option adjusts Init.
type Option func(*settings)

type settings struct {
	file    *FileOptions
	console bool
}

// WithFile additionally writes JSON logs to a rotating file.
func WithFile(f FileOptions) Option {
	return func(s *settings) {
		if f.Path != "" {
			s.file = &f
		}
	}
}

// WithoutConsole disables the stderr sink. Useful for the interactive
// client where log lines would garble the prompt.
func WithoutConsole() Option {
	return func(s *settings) { s.console = false }
}

// Init builds the logger for level ("debug", "info", "warn", "error").
func (l *Logger) Init(level string, opts ...Option) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	s := settings{console: true}
	for _, opt := range opts {
		opt(&s)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if s.console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			lvl,
		))
	}
	if s.file != nil {
		rotator := &lumberjack.Logger{
			Filename:   s.file.Path,
			MaxSize:    s.file.MaxSizeMB,
			MaxBackups: s.file.MaxBackups,
			MaxAge:     s.file.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(rotator),
			lvl,
		))
	}
	if len(cores) == 0 {
		l.Log = zap.NewNop()
		return nil
	}

	l.Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return nil
}
