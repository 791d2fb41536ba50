package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"thumbgen/logging"
)

// ImageReadyFunc is invoked once per image as soon as a unit produces it.
// ctx is the caller's context, not the unit's deadline, and time spent in the
// callback is not charged to the unit. A returned error is logged and
// otherwise ignored.
type ImageReadyFunc func(ctx context.Context, image []byte, ordinal int) error

// UnitResult is the terminal state of one generation unit.
type UnitResult struct {
	// Ordinal is 1-based and only used for logging; it says nothing about
	// completion order.
	Ordinal  int
	Images   [][]byte
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the unit contributed at least one image.
func (r UnitResult) Succeeded() bool {
	return len(r.Images) > 0
}

// UnitConfig holds the per-unit wall-clock ceilings. The clock is paused
// while an ImageReadyFunc runs.
type UnitConfig struct {
	// TextTimeout bounds a prompt-only unit.
	TextTimeout time.Duration

	// ImageTimeout bounds a unit conditioned on a reference image, which is
	// slower at the provider.
	ImageTimeout time.Duration
}

// DefaultUnitConfig returns the standard unit ceilings.
func DefaultUnitConfig() UnitConfig {
	return UnitConfig{
		TextTimeout:  30 * time.Second,
		ImageTimeout: 60 * time.Second,
	}
}

// UnitGenerator wraps a single provider call for one output unit.
//
// GenerateUnit never returns an error or panics: every failure is recorded
// on the UnitResult and the unit contributes no images.
//
// Thread Safety: UnitGenerator is safe for concurrent use.
type UnitGenerator struct {
	provider Provider
	logger   *logging.Logger
	config   UnitConfig
}

// NewUnitGenerator creates a UnitGenerator. Zero timeouts take the defaults.
func NewUnitGenerator(provider Provider, logger *logging.Logger, config UnitConfig) (*UnitGenerator, error) {
	if provider == nil {
		return nil, fmt.Errorf("imagegen: provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	defaults := DefaultUnitConfig()
	if config.TextTimeout <= 0 {
		config.TextTimeout = defaults.TextTimeout
	}
	if config.ImageTimeout <= 0 {
		config.ImageTimeout = defaults.ImageTimeout
	}
	return &UnitGenerator{
		provider: provider,
		logger:   logger.Named("unit"),
		config:   config,
	}, nil
}

type streamItem struct {
	part Part
	err  error
}

// GenerateUnit generates one unit. A non-empty reference switches to
// image-to-image: the reference encoding is sniffed, the prompt is wrapped
// by BuildReferencePrompt and the longer ceiling applies.
//
// onReady, when set, runs synchronously for each image before GenerateUnit
// returns. If the unit later fails (stream error, timeout, cancellation) the
// images are still discarded from the result.
func (g *UnitGenerator) GenerateUnit(ctx context.Context, prompt string, reference []byte, ordinal int, onReady ImageReadyFunc) UnitResult {
	start := time.Now()

	req := SubmitRequest{Prompt: prompt}
	timeout := g.config.TextTimeout
	mode := ModeTextToImage
	if len(reference) > 0 {
		mode = ModeImageToImage
		timeout = g.config.ImageTimeout
		req.Prompt = BuildReferencePrompt(prompt)
		req.Reference = reference
		req.ReferenceMimeType = DetectMimeType(reference)
	}

	log := g.logger.With(
		zap.Int("unit", ordinal),
		zap.String("mode", mode.String()),
	)
	log.Debug("generating unit",
		zap.String("prompt", truncateText(prompt, 80)),
		zap.Duration("timeout", timeout))

	unitCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	clock := startUnitClock(timeout, func() { cancel(ErrUnitTimeout) })
	defer clock.stop()

	images, err := g.run(ctx, unitCtx, clock, req, ordinal, onReady, log)

	result := UnitResult{Ordinal: ordinal, Duration: time.Since(start)}
	if err != nil {
		result.Err = err
		log.Warn("unit failed", zap.Error(err), zap.Duration("duration", result.Duration))
		return result
	}
	result.Images = images
	log.Info("unit generated",
		zap.Int("images", len(images)),
		zap.Duration("duration", result.Duration))
	return result
}

func (g *UnitGenerator) run(parent, unitCtx context.Context, clock *unitClock, req SubmitRequest, ordinal int, onReady ImageReadyFunc, log *logging.Logger) ([][]byte, error) {
	items := make(chan streamItem)
	go g.pump(unitCtx, req, items)

	deadlineErr := func() error {
		if parent.Err() != nil {
			return fmt.Errorf("imagegen: unit %d abandoned: %w", ordinal, parent.Err())
		}
		return fmt.Errorf("imagegen: unit %d: %w", ordinal, ErrUnitTimeout)
	}

	var images [][]byte
	for {
		select {
		case <-unitCtx.Done():
			return nil, deadlineErr()

		case item, ok := <-items:
			if !ok {
				// pump only closes without a terminal item once ctx is done.
				if unitCtx.Err() != nil {
					return nil, deadlineErr()
				}
				return nil, fmt.Errorf("imagegen: unit %d: stream closed unexpectedly", ordinal)
			}
			if errors.Is(item.err, io.EOF) {
				if len(images) == 0 {
					return nil, fmt.Errorf("imagegen: unit %d: %w", ordinal, ErrNoImageContent)
				}
				return images, nil
			}
			if item.err != nil {
				if unitCtx.Err() != nil {
					return nil, deadlineErr()
				}
				return nil, fmt.Errorf("imagegen: unit %d: %w", ordinal, item.err)
			}

			part := item.part
			if part.Text != "" {
				log.Debug("provider commentary", zap.String("text", truncateText(part.Text, 200)))
			}
			if len(part.ImageData) == 0 {
				continue
			}
			if !IsImageMimeType(part.MimeType) {
				return nil, fmt.Errorf("imagegen: unit %d: %w (%s)", ordinal, ErrNonImageContent, part.MimeType)
			}
			images = append(images, part.ImageData)
			if onReady != nil {
				if !clock.pause() {
					return nil, deadlineErr()
				}
				g.notify(parent, onReady, part.ImageData, ordinal, log)
				clock.resume()
			}
		}
	}
}

// pump drives the provider on its own goroutine so that a provider ignoring
// ctx cannot hold the unit past its deadline. Exactly one terminal item
// (io.EOF or an error) is sent unless ctx ends first.
func (g *UnitGenerator) pump(ctx context.Context, req SubmitRequest, items chan<- streamItem) {
	defer close(items)

	send := func(item streamItem) bool {
		select {
		case items <- item:
			return true
		case <-ctx.Done():
			return false
		}
	}

	defer func() {
		if r := recover(); r != nil {
			send(streamItem{err: fmt.Errorf("%w: %v", ErrProviderPanic, r)})
		}
	}()

	stream, err := g.provider.Submit(ctx, req)
	if err != nil {
		send(streamItem{err: err})
		return
	}
	if stream == nil {
		send(streamItem{err: io.EOF})
		return
	}
	defer stream.Close()

	for {
		part, err := stream.Next()
		if err != nil {
			send(streamItem{err: err})
			return
		}
		if !send(streamItem{part: part}) {
			return
		}
	}
}

func (g *UnitGenerator) notify(ctx context.Context, onReady ImageReadyFunc, image []byte, ordinal int, log *logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("image ready callback panicked", zap.Any("panic", r))
		}
	}()
	if err := onReady(ctx, image, ordinal); err != nil {
		log.Warn("image ready callback failed", zap.Error(err))
	}
}

// unitClock is a unit's wall-clock budget. expire runs once the budget is
// spent. Only the goroutine driving the unit may pause or resume it.
type unitClock struct {
	remaining time.Duration
	started   time.Time
	timer     *time.Timer
	expire    func()
}

func startUnitClock(budget time.Duration, expire func()) *unitClock {
	c := &unitClock{remaining: budget, expire: expire}
	c.resume()
	return c
}

// pause stops the clock and reports false if the budget already ran out.
func (c *unitClock) pause() bool {
	if c.timer == nil {
		return true
	}
	if !c.timer.Stop() {
		return false
	}
	c.timer = nil
	c.remaining -= time.Since(c.started)
	return true
}

func (c *unitClock) resume() {
	if c.timer != nil {
		return
	}
	c.started = time.Now()
	c.timer = time.AfterFunc(c.remaining, c.expire)
}

func (c *unitClock) stop() {
	if c.timer != nil {
		c.timer.Stop()
	}
}
