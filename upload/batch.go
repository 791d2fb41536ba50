package upload

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyBaseName is returned by UploadBatch when no key base is given.
var ErrEmptyBaseName = errors.New("upload: base name cannot be empty")

// Outcome is the terminal state of one upload in a batch.
type Outcome struct {
	Index int // position in the input slice
	Key   string
	URL   string
	Err   error
}

// Succeeded reports whether the upload produced a URL.
func (o Outcome) Succeeded() bool { return o.Err == nil && o.URL != "" }

// UploadBatch uploads images in groups of Config.Concurrency and returns the
// URLs of the uploads that succeeded, in group-then-arrival order. Each group
// is fully settled before the next starts. Individual failures are logged and
// dropped; an error is returned only for invalid input.
func (u *Uploader) UploadBatch(ctx context.Context, images [][]byte, baseName string) ([]string, error) {
	outcomes, err := u.UploadBatchOutcomes(ctx, images, baseName)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Succeeded() {
			urls = append(urls, o.URL)
		}
	}
	return urls, nil
}

// UploadBatchOutcomes is UploadBatch returning every outcome, failures
// included, in group-then-arrival order.
func (u *Uploader) UploadBatchOutcomes(ctx context.Context, images [][]byte, baseName string) ([]Outcome, error) {
	if baseName == "" {
		return nil, ErrEmptyBaseName
	}
	if len(images) == 0 {
		return nil, nil
	}

	log := u.logger.With(zap.String("base", baseName))
	start := time.Now()
	millis := u.now().UnixMilli()
	size := u.config.Concurrency

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(images))
	)

	for first := 0; first < len(images); first += size {
		if ctx.Err() != nil {
			log.Warn("upload batch cancelled", zap.Error(ctx.Err()))
			break
		}
		last := min(first+size, len(images))

		var g errgroup.Group
		for i := first; i < last; i++ {
			g.Go(func() error {
				key := formatKey(baseName, millis, i+1)
				url, err := u.UploadOne(ctx, images[i], key, u.config.BatchAttempts)
				mu.Lock()
				outcomes = append(outcomes, Outcome{Index: i, Key: key, URL: url, Err: err})
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	succeeded := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
		}
	}
	log.Info("upload batch complete",
		zap.Int("succeeded", succeeded),
		zap.Int("attempted", len(images)),
		zap.Duration("duration", time.Since(start)))

	return outcomes, nil
}
