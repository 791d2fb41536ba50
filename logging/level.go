package logging

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// LevelEnvVar overrides the log level when set.
const LevelEnvVar = "THUMBGEN_LOG_LEVEL"

// ParseLevel maps a case-insensitive level name to a zapcore.Level.
// The boolean is false when the name is unknown.
func ParseLevel(name string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// LevelFromEnv reads LevelEnvVar. It returns nil when unset or unparseable
// so callers can leave Options.Level untouched.
func LevelFromEnv() *zapcore.Level {
	lvl, ok := ParseLevel(os.Getenv(LevelEnvVar))
	if !ok {
		return nil
	}
	return &lvl
}
