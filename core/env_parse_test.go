package core

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	const testKey = "TEST_GET_ENV_OR_DEFAULT"

	tests := []struct {
		name         string
		envValue     string
		defaultValue string
		want         string
	}{
		{"returns env value when set", "custom_value", "default", "custom_value"},
		{"returns default when empty", "", "default", "default"},
		{"trims whitespace", "  padded  ", "default", "padded"},
		{"whitespace only falls back", "   ", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			if got := GetEnvOrDefault(testKey, tt.defaultValue); got != tt.want {
				t.Errorf("GetEnvOrDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseIntEnv(t *testing.T) {
	const testKey = "TEST_PARSE_INT_ENV"

	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"valid integer", "42", 42},
		{"negative integer", "-3", -3},
		{"invalid falls back", "abc", 7},
		{"empty falls back", "", 7},
		{"float falls back", "1.5", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			if got := ParseIntEnv(testKey, 7); got != tt.want {
				t.Errorf("ParseIntEnv() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	const testKey = "TEST_PARSE_BOOL_ENV"

	tests := []struct {
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			if got := ParseBoolEnv(testKey, tt.defaultValue); got != tt.want {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("TEST_SECONDS", "45")
	t.Setenv("TEST_MINUTES", "")

	if got := ParseSecondsEnv("TEST_SECONDS", 30); got != 45*time.Second {
		t.Errorf("ParseSecondsEnv() = %v, want 45s", got)
	}
	if got := ParseMinutesEnv("TEST_MINUTES", 60); got != time.Hour {
		t.Errorf("ParseMinutesEnv() = %v, want 1h", got)
	}
}
