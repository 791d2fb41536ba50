// Package upload delivers generated images to durable storage.
//
// UploadOne wraps a single object upload with a per-attempt timeout and
// exponential backoff between attempts. UploadBatch fans uploads out in
// sequential groups and keeps whatever succeeds.
package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"thumbgen/imagegen"
	"thumbgen/logging"
)

// ErrEmptyData is returned for zero-length buffers without attempting an upload.
var ErrEmptyData = errors.New("upload: image data is empty")

// ObjectStore is the durable storage the uploader writes to.
type ObjectStore interface {
	PutObject(ctx context.Context, data []byte, key, contentType string) (string, error)
}

// UploadError reports an upload that failed on every attempt. It unwraps to
// the last attempt's error.
type UploadError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload: %s failed after %d attempt(s): %v", e.Key, e.Attempts, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Config holds the retry and concurrency settings.
type Config struct {
	// Timeout bounds each attempt. A timeout is an ordinary failed attempt.
	Timeout time.Duration

	// InitialBackoff is the wait after the first failure; it doubles after
	// each further failure. No wait follows the final attempt.
	InitialBackoff time.Duration

	// SingleAttempts is the ceiling for one-off uploads (the pipelined path).
	SingleAttempts int

	// BatchAttempts is the ceiling for each upload within UploadBatch.
	BatchAttempts int

	// Concurrency is the group size of UploadBatch.
	Concurrency int

	// OnAttempt is called after every attempt with its number and result
	// (nil on success). Optional; must be safe for concurrent use.
	OnAttempt func(attempt int, err error)
}

// DefaultConfig returns the standard settings: 30s per attempt, backoff from
// 1s, 2 attempts single, 3 attempts batch, 3 concurrent uploads.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		InitialBackoff: time.Second,
		SingleAttempts: 2,
		BatchAttempts:  3,
		Concurrency:    3,
	}
}

// Uploader uploads image buffers to an ObjectStore.
//
// Thread Safety: Uploader is safe for concurrent use.
type Uploader struct {
	store  ObjectStore
	logger *logging.Logger
	config Config

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewUploader creates an Uploader. Unset config fields take their defaults.
func NewUploader(store ObjectStore, logger *logging.Logger, config Config) (*Uploader, error) {
	if store == nil {
		return nil, fmt.Errorf("upload: store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("upload: logger cannot be nil")
	}

	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.InitialBackoff < 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.SingleAttempts <= 0 {
		config.SingleAttempts = defaults.SingleAttempts
	}
	if config.BatchAttempts <= 0 {
		config.BatchAttempts = defaults.BatchAttempts
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}

	return &Uploader{
		store:  store,
		logger: logger.Named("upload"),
		config: config,
		sleep:  sleepContext,
		now:    time.Now,
	}, nil
}

// Config returns the effective configuration.
func (u *Uploader) Config() Config { return u.config }

// Key builds a storage key of the form <base>_<unixMillis>_<ordinal>.
func (u *Uploader) Key(baseName string, ordinal int) string {
	return formatKey(baseName, u.now().UnixMilli(), ordinal)
}

func formatKey(baseName string, millis int64, ordinal int) string {
	return fmt.Sprintf("%s_%d_%d", baseName, millis, ordinal)
}

// UploadOne uploads data under key, making up to maxAttempts attempts
// (SingleAttempts when maxAttempts <= 0). On exhaustion it returns an
// *UploadError wrapping the last attempt's error. Cancelling ctx stops
// retrying immediately.
func (u *Uploader) UploadOne(ctx context.Context, data []byte, key string, maxAttempts int) (string, error) {
	if len(data) == 0 {
		return "", &UploadError{Key: key, Err: ErrEmptyData}
	}
	if maxAttempts <= 0 {
		maxAttempts = u.config.SingleAttempts
	}

	contentType := imagegen.DetectMimeType(data)
	log := u.logger.With(zap.String("key", key))

	var lastErr error
	backoff := u.config.InitialBackoff
	attempts := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		attempts = attempt
		url, err := u.attempt(ctx, data, key, contentType)
		if u.config.OnAttempt != nil {
			u.config.OnAttempt(attempt, err)
		}
		if err == nil {
			if attempt > 1 {
				log.Info("upload succeeded after retry", zap.Int("attempt", attempt))
			} else {
				log.Debug("upload succeeded")
			}
			return url, nil
		}

		lastErr = err
		log.Warn("upload attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		if attempt < maxAttempts {
			if err := u.sleep(ctx, backoff); err != nil {
				lastErr = err
				break
			}
			backoff *= 2
		}
	}

	return "", &UploadError{Key: key, Attempts: attempts, Err: lastErr}
}

type putResult struct {
	url string
	err error
}

// attempt runs one PutObject under the per-attempt timeout. A store that
// ignores ctx is abandoned at the deadline.
func (u *Uploader) attempt(ctx context.Context, data []byte, key, contentType string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, u.config.Timeout)
	defer cancel()

	done := make(chan putResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- putResult{err: fmt.Errorf("upload: store panicked: %v", r)}
			}
		}()
		url, err := u.store.PutObject(attemptCtx, data, key, contentType)
		done <- putResult{url: url, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && res.url == "" {
			return "", fmt.Errorf("upload: store returned an empty URL")
		}
		return res.url, res.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("upload: attempt timed out after %s: %w", u.config.Timeout, attemptCtx.Err())
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
