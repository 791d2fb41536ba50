package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTuningFile overlays the YAML document at path onto base. Keys absent
// from the file keep their base value. Durations use Go syntax ("45s", "2m").
//
// Example file:
//
//	image_concurrency: 2
//	upload_batch_attempts: 4
//	batch_timeout: 3m
func LoadTuningFile(path string, base Tuning) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, &ConfigError{
			Code:    ErrCodeTuningFile,
			Message: fmt.Sprintf("Cannot read tuning file %s: %v", path, err),
			Action:  "Fix THUMBGEN_TUNING_FILE or unset it",
		}
	}

	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return base, &ConfigError{
			Code:    ErrCodeTuningFile,
			Message: fmt.Sprintf("Invalid tuning file %s: %v", path, err),
			Action:  "Check the YAML syntax and duration formats",
		}
	}
	return out, nil
}
