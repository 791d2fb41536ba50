package imagegen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"thumbgen/logging"
)

// BatchRequest describes one batch of units sharing a prompt.
type BatchRequest struct {
	Prompt string
	// Reference is required for ModeImageToImage and ignored otherwise.
	Reference []byte
	// UnitCount is clamped with ClampUnitCount.
	UnitCount int
	Mode      Mode
	// OnImageReady is passed to every unit.
	OnImageReady ImageReadyFunc
}

// BatchResult aggregates a batch. Images holds every image from every
// successful unit in completion order; Units holds one entry per unit that
// ran, also in completion order.
type BatchResult struct {
	Images [][]byte
	Units  []UnitResult
}

// Succeeded returns the number of units that produced at least one image.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, u := range r.Units {
		if u.Succeeded() {
			n++
		}
	}
	return n
}

// BatchConfig holds the per-mode concurrency caps.
type BatchConfig struct {
	// TextConcurrency caps a text-to-image group. Zero runs every unit at once.
	TextConcurrency int

	// ImageConcurrency caps an image-to-image group.
	ImageConcurrency int
}

// DefaultBatchConfig returns the standard caps: text uncapped, image 3.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		TextConcurrency:  0,
		ImageConcurrency: 3,
	}
}

// unitRunner is the slice of UnitGenerator the batch depends on.
type unitRunner interface {
	GenerateUnit(ctx context.Context, prompt string, reference []byte, ordinal int, onReady ImageReadyFunc) UnitResult
}

// BatchGenerator fans a batch out over a UnitGenerator in sequential groups.
//
// Groups run strictly one after another; all units in a group run
// concurrently and the group is fully settled, failures included, before
// the next one starts. A failed unit never cancels its siblings or later
// groups.
type BatchGenerator struct {
	units  unitRunner
	logger *logging.Logger
	config BatchConfig
}

// NewBatchGenerator creates a BatchGenerator.
func NewBatchGenerator(units *UnitGenerator, logger *logging.Logger, config BatchConfig) (*BatchGenerator, error) {
	if units == nil {
		return nil, fmt.Errorf("imagegen: unit generator cannot be nil")
	}
	return newBatchGenerator(units, logger, config)
}

func newBatchGenerator(units unitRunner, logger *logging.Logger, config BatchConfig) (*BatchGenerator, error) {
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	if config.TextConcurrency < 0 {
		config.TextConcurrency = 0
	}
	if config.ImageConcurrency <= 0 {
		config.ImageConcurrency = DefaultBatchConfig().ImageConcurrency
	}
	return &BatchGenerator{
		units:  units,
		logger: logger.Named("batch"),
		config: config,
	}, nil
}

// GroupSize returns how many units of a batch run concurrently.
func (b *BatchGenerator) GroupSize(mode Mode, unitCount int) int {
	limit := b.config.TextConcurrency
	if mode == ModeImageToImage {
		limit = b.config.ImageConcurrency
	}
	if limit <= 0 || limit > unitCount {
		return unitCount
	}
	return limit
}

// GenerateBatch runs the batch and returns whatever succeeded. It never
// fails as a whole; a batch where every unit failed has empty Images and the
// unit errors in Units.
//
// If ctx is cancelled, groups not yet started are skipped and the images
// already collected are discarded.
func (b *BatchGenerator) GenerateBatch(ctx context.Context, req BatchRequest) BatchResult {
	count := ClampUnitCount(req.UnitCount)
	log := b.logger.With(
		zap.String("mode", req.Mode.String()),
		zap.Int("units", count),
	)

	var reference []byte
	if req.Mode == ModeImageToImage {
		if len(req.Reference) == 0 {
			log.Error("image-to-image batch without reference image")
			result := BatchResult{Units: make([]UnitResult, 0, count)}
			for ordinal := 1; ordinal <= count; ordinal++ {
				result.Units = append(result.Units, UnitResult{Ordinal: ordinal, Err: ErrMissingReference})
			}
			return result
		}
		reference = req.Reference
	}

	size := b.GroupSize(req.Mode, count)
	start := time.Now()
	log.Info("starting batch", zap.Int("group_size", size))

	var (
		mu     sync.Mutex
		result = BatchResult{Units: make([]UnitResult, 0, count)}
	)

	for first := 1; first <= count; first += size {
		if ctx.Err() != nil {
			break
		}
		last := min(first+size-1, count)

		var g errgroup.Group
		for ordinal := first; ordinal <= last; ordinal++ {
			g.Go(func() error {
				unit := b.units.GenerateUnit(ctx, req.Prompt, reference, ordinal, req.OnImageReady)
				mu.Lock()
				result.Units = append(result.Units, unit)
				result.Images = append(result.Images, unit.Images...)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		log.Debug("group settled", zap.Int("first", first), zap.Int("last", last))
	}

	if err := ctx.Err(); err != nil {
		log.Warn("batch cancelled, discarding collected images",
			zap.Error(err),
			zap.Int("discarded", len(result.Images)))
		result.Images = nil
		return result
	}

	log.Info("batch complete",
		zap.Int("succeeded", result.Succeeded()),
		zap.Int("images", len(result.Images)),
		zap.Duration("duration", time.Since(start)))
	return result
}
