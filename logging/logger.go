// Package logging wraps zap with the conventions used across thumbgen:
// a console core plus a rotated JSON file core, named child loggers, and
// redaction of credentials before anything reaches an encoder.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper over *zap.Logger that redacts sensitive values.
//
// Example:
//
//	logger, err := logging.New(logging.Options{Development: true, FilePath: "thumbgen.log"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	logger.Named("pipeline").Info("run started", zap.Int("units", 4))
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

// Options controls how New builds the logger.
type Options struct {
	// Development switches the console to a coloured, human-readable encoder
	// and lowers the default level to debug.
	Development bool

	// FilePath enables the JSON file core. Empty disables file output.
	FilePath string

	// Level overrides the default level when non-nil.
	Level *zapcore.Level

	// Rotation configures lumberjack; zero fields fall back to defaults.
	Rotation RotationConfig
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Development {
		level = zapcore.DebugLevel
	}
	if opts.Level != nil {
		level = *opts.Level
	}

	core, err := newTeeCore(level, opts)
	if err != nil {
		return nil, fmt.Errorf("logging: build core: %w", err)
	}
	return NewWithCore(core), nil
}

// NewLogger is the short form used by main: development flag plus log file path.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	return New(Options{Development: isDevelopment, FilePath: logFilePath})
}

// NewWithCore wraps an arbitrary zapcore.Core. Tests pair it with
// zaptest/observer to assert on emitted entries.
func NewWithCore(core zapcore.Core) *Logger {
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{zap: z, sugar: z.Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	z := zap.NewNop()
	return &Logger{zap: z, sugar: z.Sugar()}
}

// Sync flushes buffered entries. Safe on a nil receiver.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Fatal logs and then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, redactFields(fields)...)
}

// Infow logs loosely-typed key/value pairs at info level.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, redactKeysAndValues(keysAndValues)...)
}

// Warnw logs loosely-typed key/value pairs at warn level.
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, redactKeysAndValues(keysAndValues)...)
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	z := l.zap.With(redactFields(fields)...)
	return &Logger{zap: z, sugar: z.Sugar()}
}

// Named returns a child logger with name appended to the logger path.
func (l *Logger) Named(name string) *Logger {
	z := l.zap.Named(name)
	return &Logger{zap: z, sugar: z.Sugar()}
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

func redactField(f zap.Field) zap.Field {
	if IsSensitiveField(f.Key) {
		return zap.String(f.Key, RedactedPlaceholder)
	}
	if f.Type == zapcore.StringType {
		if masked := RedactSensitiveData(f.String); masked != f.String {
			return zap.String(f.Key, masked)
		}
	}
	return f
}

func redactKeysAndValues(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if IsSensitiveField(key) {
			out[i+1] = RedactedPlaceholder
			continue
		}
		if s, ok := out[i+1].(string); ok {
			out[i+1] = RedactSensitiveData(s)
		}
	}
	return out
}
