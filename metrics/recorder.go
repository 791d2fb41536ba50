package metrics

import "time"

// Recorder receives pipeline events. Implementations must be safe for
// concurrent use since units and uploads report from their own goroutines.
type Recorder interface {
	// RecordRun logs a finished pipeline run.
	RecordRun(run RunRecord)

	// RecordUnit logs one generation unit.
	RecordUnit(mode string, succeeded bool, duration time.Duration)

	// RecordUpload logs one upload unit after its retries settled.
	RecordUpload(path string, succeeded bool)

	// RecordCacheLookup logs a prompt cache lookup.
	RecordCacheLookup(hit bool)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordRun(RunRecord)                    {}
func (Nop) RecordUnit(string, bool, time.Duration) {}
func (Nop) RecordUpload(string, bool)              {}
func (Nop) RecordCacheLookup(bool)                 {}

// Multi fans events out to several recorders. Nil entries are skipped.
func Multi(recorders ...Recorder) Recorder {
	filtered := make(multi, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

type multi []Recorder

func (m multi) RecordRun(run RunRecord) {
	for _, r := range m {
		r.RecordRun(run)
	}
}

func (m multi) RecordUnit(mode string, succeeded bool, duration time.Duration) {
	for _, r := range m {
		r.RecordUnit(mode, succeeded, duration)
	}
}

func (m multi) RecordUpload(path string, succeeded bool) {
	for _, r := range m {
		r.RecordUpload(path, succeeded)
	}
}

func (m multi) RecordCacheLookup(hit bool) {
	for _, r := range m {
		r.RecordCacheLookup(hit)
	}
}

var (
	_ Recorder = Nop{}
	_ Recorder = multi(nil)
)
