package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPrompt is returned when a request has nothing to generate from.
	ErrEmptyPrompt = errors.New("pipeline: prompt is required")

	// ErrMissingReference is returned by RunImageToImage without a reference image.
	ErrMissingReference = errors.New("pipeline: reference image is required")

	// ErrInvalidReference is returned when the reference is declared as a
	// non-image content type.
	ErrInvalidReference = errors.New("pipeline: reference must be an image")

	// ErrNoImages is wrapped by every whole-batch failure.
	ErrNoImages = errors.New("pipeline: no images delivered")
)

// FailureKind classifies a whole-batch failure.
type FailureKind string

const (
	// FailureProviderUnreachable: every unit failed on transport, submit or timeout.
	FailureProviderUnreachable FailureKind = "provider_unreachable"

	// FailureAllRejected: the provider answered but no unit yielded an image.
	FailureAllRejected FailureKind = "all_rejected"

	// FailureUploadFailed: images were generated but none could be stored.
	FailureUploadFailed FailureKind = "upload_failed"
)

// BatchError reports a run that delivered zero images.
type BatchError struct {
	Kind      FailureKind
	Requested int
	Generated int
	// Err is the last underlying unit or upload error, if any.
	Err error
}

func (e *BatchError) Error() string {
	msg := fmt.Sprintf("pipeline: %s: %d requested, %d generated", e.Kind, e.Requested, e.Generated)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrNoImages and the underlying cause to errors.Is/As.
func (e *BatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNoImages}
	}
	return []error{ErrNoImages, e.Err}
}

// IsBatchError reports whether err is a *BatchError of the given kind.
func IsBatchError(err error, kind FailureKind) bool {
	var be *BatchError
	return errors.As(err, &be) && be.Kind == kind
}
