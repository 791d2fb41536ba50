package imagegen

import "errors"

// Sentinel errors recorded on failed units. The batch never returns them;
// callers inspect UnitResult.Err to classify a batch that produced nothing.
var (
	// ErrUnitTimeout means the unit outlived its wall-clock ceiling.
	ErrUnitTimeout = errors.New("imagegen: unit timed out")

	// ErrRejected means the provider answered but refused the request.
	ErrRejected = errors.New("imagegen: provider rejected the request")

	// ErrNoImageContent means the provider's response contained no image.
	ErrNoImageContent = errors.New("imagegen: provider returned no image")

	// ErrNonImageContent means the response carried a non-image payload.
	ErrNonImageContent = errors.New("imagegen: provider returned non-image content")

	// ErrMissingReference means an image-to-image batch had no reference image.
	ErrMissingReference = errors.New("imagegen: reference image is required for image-to-image")

	// ErrProviderPanic means provider code panicked during the unit.
	ErrProviderPanic = errors.New("imagegen: provider panicked")
)

// IsRejection reports whether err shows that the provider was reached and
// answered without a usable image, as opposed to being unreachable.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected) ||
		errors.Is(err, ErrNoImageContent) ||
		errors.Is(err, ErrNonImageContent)
}
