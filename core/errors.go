package core

import (
	"errors"
	"fmt"
)

// ConfigError describes a configuration problem together with what to do about it.
type ConfigError struct {
	Code    string
	Message string
	Action  string
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes carried by ConfigError.
const (
	ErrCodeMissingConfig  = "MISSING_CONFIG"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeUnknownBackend = "UNKNOWN_BACKEND"
	ErrCodeTuningFile     = "TUNING_FILE"
)

// ErrMissingConfig reports a required variable that is unset.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in the environment or your .env file", varName),
	}
}

// ErrInvalidValue reports a variable whose value is out of range.
func ErrInvalidValue(varName string, value interface{}, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s=%v: %s", varName, value, reason),
		Action:  fmt.Sprintf("Correct %s or unset it to use the default", varName),
	}
}

// ErrUnknownBackend reports an unsupported STORAGE_BACKEND.
func ErrUnknownBackend(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnknownBackend,
		Message: fmt.Sprintf("Unknown storage backend %q", name),
		Action:  "Set STORAGE_BACKEND to s3 or local",
	}
}

// GetErrorCode extracts the code from a (possibly wrapped) ConfigError.
func GetErrorCode(err error) string {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
