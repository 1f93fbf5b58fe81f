package events

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/TheMichaelB/calcvault/internal/config"
)

// LogLevel represents logging severity.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger provides structured logging on top of zap.
type Logger struct {
	z     *zap.Logger
	level LogLevel
}

// NewLogger creates a logger from config.
func NewLogger(cfg *config.LogConfig) (*Logger, error) {
	level := parseLevel(cfg.Level)

	var output io.Writer = os.Stderr
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = file
	}

	return newLogger(level, cfg.Format, output, isTerminal(output)), nil
}

// NewTestLogger creates a logger for testing.
func NewTestLogger(level LogLevel, format string, output io.Writer) *Logger {
	return newLogger(level, format, output, false)
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{z: zap.NewNop(), level: ErrorLevel}
}

func newLogger(level LogLevel, format string, output io.Writer, color bool) *Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
	}

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		// Format: TIME [LEVEL] Message {fields}
		encCfg.CallerKey = ""
		encCfg.EncodeLevel = bracketLevelEncoder(color)
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(output)), zapLevel(level))

	return &Logger{
		z:     zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		level: level,
	}
}

func (l *Logger) must() *zap.Logger {
	if l == nil || l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

// WithField returns a logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		z:     l.must().With(zap.Any(key, value)),
		level: l.levelOrDefault(),
	}
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}

	return &Logger{
		z:     l.must().With(zf...),
		level: l.levelOrDefault(),
	}
}

// WithError adds an error field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string) {
	l.must().Debug(msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string) {
	l.must().Info(msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string) {
	l.must().Warn(msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string) {
	l.must().Error(msg)
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l.must().Core().Enabled(zapLevel(level))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.must().Sync()
}

func (l *Logger) levelOrDefault() LogLevel {
	if l == nil {
		return InfoLevel
	}
	return l.level
}

// Helper functions

func parseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func zapLevel(l LogLevel) zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func bracketLevelEncoder(color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		if !color {
			enc.AppendString("[" + l.CapitalString() + "]")
			return
		}

		var code string
		switch l {
		case zapcore.DebugLevel:
			code = "\033[36m" // Cyan
		case zapcore.InfoLevel:
			code = "\033[32m" // Green
		case zapcore.WarnLevel:
			code = "\033[33m" // Yellow
		default:
			code = "\033[31m" // Red
		}
		enc.AppendString(code + "[" + l.CapitalString() + "]\033[0m")
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
