package logging

import (
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults applied when RotationConfig fields are zero.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 14
)

// RotationConfig mirrors the lumberjack knobs we expose.
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (c RotationConfig) withDefaults() RotationConfig {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = DefaultMaxSizeMB
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = DefaultMaxAgeDays
	}
	return c
}

// NewFileWriter returns a rotating WriteSyncer for path.
func NewFileWriter(path string, cfg RotationConfig) zapcore.WriteSyncer {
	cfg = cfg.withDefaults()
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}

// jsonEncoderConfig is used for the file core and for the console in production.
func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := jsonEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("15:04:05.000"))
	}
	return cfg
}

// NewTeeCoreWithWriters builds the console+file tee over caller-supplied
// writers. A nil file writer yields a console-only core.
func NewTeeCoreWithWriters(level zapcore.Level, console, file zapcore.WriteSyncer, development bool) zapcore.Core {
	var consoleEnc zapcore.Encoder
	if development {
		consoleEnc = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	} else {
		consoleEnc = zapcore.NewJSONEncoder(jsonEncoderConfig())
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, console, level)}
	if file != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), file, level))
	}
	return zapcore.NewTee(cores...)
}

func newTeeCore(level zapcore.Level, opts Options) (zapcore.Core, error) {
	var file zapcore.WriteSyncer
	if opts.FilePath != "" {
		// Open once up front so a bad path fails here rather than on first write.
		f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		f.Close()
		file = NewFileWriter(opts.FilePath, opts.Rotation)
	}
	return NewTeeCoreWithWriters(level, zapcore.Lock(os.Stdout), file, opts.Development), nil
}
