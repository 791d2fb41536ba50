package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		contains []string
	}{
		{
			name:     "error with action",
			err:      &ConfigError{Code: "TEST_CODE", Message: "Test message", Action: "Take this action"},
			contains: []string{"Test message", "Take this action"},
		},
		{
			name:     "error without action",
			err:      &ConfigError{Code: "TEST_CODE", Message: "Test message only"},
			contains: []string{"Test message only"},
		},
		{
			name:     "missing config names the variable",
			err:      ErrMissingConfig("OPENAI_API_KEY"),
			contains: []string{"OPENAI_API_KEY", ".env"},
		},
		{
			name:     "invalid value carries value and reason",
			err:      ErrInvalidValue("UPLOAD_CONCURRENCY", 0, "must be at least 1"),
			contains: []string{"UPLOAD_CONCURRENCY=0", "must be at least 1"},
		},
		{
			name:     "unknown backend lists choices",
			err:      ErrUnknownBackend("gcs"),
			contains: []string{`"gcs"`, "s3 or local"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(errStr, s) {
					t.Errorf("ConfigError.Error() = %q, expected to contain %q", errStr, s)
				}
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"direct", ErrMissingConfig("X"), ErrCodeMissingConfig},
		{"wrapped", fmt.Errorf("startup: %w", ErrUnknownBackend("x")), ErrCodeUnknownBackend},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.want {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
