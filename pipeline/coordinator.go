// Package pipeline runs a generation request end to end: prompt building,
// optional cached enhancement, batch generation and delivery to storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"thumbgen/enhance"
	"thumbgen/imagegen"
	"thumbgen/logging"
	"thumbgen/metrics"
	"thumbgen/shutdown"
	"thumbgen/upload"
)

// Storage key bases.
const (
	TextToImageKeyBase          = "generated_image"
	ImageToImageKeyBase         = "image_to_image"
	ImageToImageFallbackKeyBase = "image_to_image_fallback"
)

// DefaultImageToImageUnitCount applies when an image-to-image request leaves
// UnitCount unset.
const DefaultImageToImageUnitCount = 1

// Request is one generation request. It is not mutated by the coordinator.
type Request struct {
	// Prompt is the user's prompt. When Style is set it becomes
	// Style.OriginalPrompt unless that is already filled.
	Prompt string

	// Style, when non-nil, routes the prompt through BuildPrompt.
	Style *PromptFields

	// ReferenceImage is required for image-to-image.
	ReferenceImage []byte

	// ReferenceMimeType is the declared type of ReferenceImage, if known.
	ReferenceMimeType string

	// UnitCount is clamped to 1..4. Zero means 4 for text-to-image and 1
	// for image-to-image.
	UnitCount int

	// Mode selects the flow for Run.
	Mode imagegen.Mode

	// Enhance sends the final prompt through the cached enhancer.
	Enhance bool
}

// Result is a completed run. URLs holds only successful deliveries.
type Result struct {
	URLs          []string      `json:"images"`
	Prompt        string        `json:"prompt"`
	Enhanced      bool          `json:"enhanced"`
	// Generated counts units that produced an image, including a unit whose
	// image was delivered by the immediate upload before the unit failed.
	Generated     int           `json:"generated"`
	Requested     int           `json:"requested"`
	CorrelationID string        `json:"correlation_id"`
	Duration      time.Duration `json:"duration"`
}

// Generator produces a batch of images.
type Generator interface {
	GenerateBatch(ctx context.Context, req imagegen.BatchRequest) imagegen.BatchResult
}

// Uploader delivers images to storage.
type Uploader interface {
	UploadOne(ctx context.Context, data []byte, key string, maxAttempts int) (string, error)
	UploadBatchOutcomes(ctx context.Context, images [][]byte, baseName string) ([]upload.Outcome, error)
	Key(baseName string, ordinal int) string
	Config() upload.Config
}

// PromptEnhancer rewrites a prompt and reports how.
type PromptEnhancer interface {
	EnhanceWithOutcome(ctx context.Context, prompt string) enhance.Outcome
}

// Config holds optional coordinator settings.
type Config struct {
	// BatchTimeout bounds a whole run. Zero disables it.
	BatchTimeout time.Duration

	// Enhancer is used for requests with Enhance set. Nil disables enhancement.
	Enhancer PromptEnhancer

	// Recorder receives run, unit, upload and cache events. Nil discards them.
	Recorder metrics.Recorder

	// Tracker registers each run while it is in flight. Optional.
	Tracker *shutdown.OperationTracker
}

// Coordinator wires generation to delivery.
//
// Thread Safety: Coordinator is safe for concurrent use; each run keeps its
// own state.
type Coordinator struct {
	generator Generator
	uploader  Uploader
	logger    *logging.Logger
	config    Config

	newID func() string
	now   func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(generator Generator, uploader Uploader, logger *logging.Logger, config Config) (*Coordinator, error) {
	if generator == nil {
		return nil, fmt.Errorf("pipeline: generator cannot be nil")
	}
	if uploader == nil {
		return nil, fmt.Errorf("pipeline: uploader cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("pipeline: logger cannot be nil")
	}
	if config.BatchTimeout < 0 {
		return nil, fmt.Errorf("pipeline: batch timeout cannot be negative")
	}
	if config.Recorder == nil {
		config.Recorder = metrics.Nop{}
	}
	return &Coordinator{
		generator: generator,
		uploader:  uploader,
		logger:    logger.Named("pipeline"),
		config:    config,
		newID:     uuid.NewString,
		now:       time.Now,
	}, nil
}

// Run dispatches on req.Mode.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	switch req.Mode {
	case imagegen.ModeTextToImage:
		return c.RunTextToImage(ctx, req)
	case imagegen.ModeImageToImage:
		return c.RunImageToImage(ctx, req)
	default:
		return nil, fmt.Errorf("pipeline: unknown mode %d", req.Mode)
	}
}

// RunTextToImage generates every unit concurrently, then uploads the
// results in bounded groups.
func (c *Coordinator) RunTextToImage(ctx context.Context, req Request) (*Result, error) {
	return c.run(ctx, req, imagegen.ModeTextToImage, c.deliverAfterBatch)
}

// RunImageToImage generates from req.ReferenceImage in groups of at most
// three, uploading each image as soon as its unit finishes. Images the
// immediate path could not store are swept through a batch upload at the end.
func (c *Coordinator) RunImageToImage(ctx context.Context, req Request) (*Result, error) {
	if len(req.ReferenceImage) == 0 {
		return nil, ErrMissingReference
	}
	if !imagegen.IsImageMimeType(req.ReferenceMimeType) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidReference, req.ReferenceMimeType)
	}
	return c.run(ctx, req, imagegen.ModeImageToImage, c.deliverPipelined)
}

// delivery generates and stores a batch, returning the stored URLs.
type delivery func(ctx context.Context, r *runState) []string

type runState struct {
	id      string
	prompt  string
	count   int
	mode    imagegen.Mode
	req     Request
	log     *logging.Logger
	batch   imagegen.BatchResult
	lastErr error

	// salvaged counts failed units whose image was already delivered.
	salvaged int
}

func (c *Coordinator) run(ctx context.Context, req Request, mode imagegen.Mode, deliver delivery) (*Result, error) {
	id := c.newID()
	start := c.now()
	log := c.logger.With(zap.String("correlation_id", id), zap.String("mode", mode.String()))

	if c.config.Tracker != nil {
		done, err := c.config.Tracker.Start(id)
		if err != nil {
			return nil, fmt.Errorf("pipeline: run rejected: %w", err)
		}
		defer done()
	}

	count := req.UnitCount
	if count == 0 && mode == imagegen.ModeImageToImage {
		count = DefaultImageToImageUnitCount
	}
	count = imagegen.ClampUnitCount(count)

	prompt, enhanced, err := c.preparePrompt(ctx, req, mode, log)
	if err != nil {
		return nil, err
	}

	if c.config.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.BatchTimeout)
		defer cancel()
	}

	log.Info("run started", zap.Int("units", count), zap.Bool("enhanced", enhanced))

	state := &runState{id: id, prompt: prompt, count: count, mode: mode, req: req, log: log}
	urls := deliver(ctx, state)

	for _, u := range state.batch.Units {
		c.config.Recorder.RecordUnit(mode.String(), u.Succeeded(), u.Duration)
	}

	result := &Result{
		URLs:          urls,
		Prompt:        prompt,
		Enhanced:      enhanced,
		Generated:     state.batch.Succeeded() + state.salvaged,
		Requested:     count,
		CorrelationID: id,
		Duration:      c.now().Sub(start),
	}

	runErr := c.checkResult(ctx, state, result)
	c.recordRun(result, mode, start, runErr)
	if runErr != nil {
		log.Error("run failed", zap.Error(runErr))
		return nil, runErr
	}

	log.Info("run complete",
		zap.Int("generated", result.Generated),
		zap.Int("delivered", len(result.URLs)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// preparePrompt builds the final prompt and applies enhancement.
func (c *Coordinator) preparePrompt(ctx context.Context, req Request, mode imagegen.Mode, log *logging.Logger) (string, bool, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if req.Style != nil {
		fields := *req.Style
		if strings.TrimSpace(fields.OriginalPrompt) == "" {
			fields.OriginalPrompt = prompt
		}
		built, err := BuildPrompt(fields, mode)
		if err != nil {
			return "", false, err
		}
		prompt = built
	}
	if prompt == "" {
		return "", false, ErrEmptyPrompt
	}

	if !req.Enhance {
		return prompt, false, nil
	}
	if c.config.Enhancer == nil {
		log.Warn("enhancement requested but no enhancer is configured")
		return prompt, false, nil
	}

	out := c.config.Enhancer.EnhanceWithOutcome(ctx, prompt)
	c.config.Recorder.RecordCacheLookup(out.CacheHit)
	if out.Prompt == "" {
		return prompt, false, nil
	}
	return out.Prompt, out.Enhanced, nil
}

// deliverAfterBatch is the text-to-image path: generate everything, then
// upload everything.
func (c *Coordinator) deliverAfterBatch(ctx context.Context, r *runState) []string {
	r.batch = c.generator.GenerateBatch(ctx, imagegen.BatchRequest{
		Prompt:    r.prompt,
		UnitCount: r.count,
		Mode:      imagegen.ModeTextToImage,
	})
	if len(r.batch.Images) == 0 || ctx.Err() != nil {
		return nil
	}
	return c.uploadRemaining(ctx, r, r.batch.Images, TextToImageKeyBase, metrics.UploadPathBatch)
}

// deliverPipelined is the image-to-image path. Each image is uploaded from
// the unit's callback; the sweep afterwards covers buffers the callback did
// not store. Buffers are tracked by identity so the union has no duplicates.
func (c *Coordinator) deliverPipelined(ctx context.Context, r *runState) []string {
	var (
		mu       sync.Mutex
		urls     []string
		uploaded = make(map[*byte]bool)
		units    = make(map[int]bool)
		seq      atomic.Int64
	)
	maxAttempts := c.uploader.Config().SingleAttempts

	onReady := func(cbCtx context.Context, image []byte, ordinal int) error {
		if len(image) == 0 {
			return upload.ErrEmptyData
		}
		key := c.uploader.Key(ImageToImageKeyBase, int(seq.Add(1)))
		url, err := c.uploader.UploadOne(cbCtx, image, key, maxAttempts)
		c.config.Recorder.RecordUpload(metrics.UploadPathImmediate, err == nil)
		if err != nil {
			r.log.Warn("immediate upload failed, leaving image for fallback",
				zap.Int("unit", ordinal), zap.String("key", key), zap.Error(err))
			mu.Lock()
			r.lastErr = err
			mu.Unlock()
			return err
		}
		mu.Lock()
		uploaded[&image[0]] = true
		units[ordinal] = true
		urls = append(urls, url)
		mu.Unlock()
		r.log.Debug("image uploaded immediately", zap.Int("unit", ordinal), zap.String("key", key))
		return nil
	}

	r.batch = c.generator.GenerateBatch(ctx, imagegen.BatchRequest{
		Prompt:       r.prompt,
		Reference:    r.req.ReferenceImage,
		UnitCount:    r.count,
		Mode:         imagegen.ModeImageToImage,
		OnImageReady: onReady,
	})
	if ctx.Err() != nil {
		return nil
	}

	mu.Lock()
	for _, u := range r.batch.Units {
		if !u.Succeeded() && units[u.Ordinal] {
			r.salvaged++
		}
	}
	var remaining [][]byte
	for _, image := range r.batch.Images {
		if len(image) == 0 || uploaded[&image[0]] {
			continue
		}
		remaining = append(remaining, image)
	}
	mu.Unlock()

	if len(remaining) > 0 {
		r.log.Info("sweeping images missed by immediate upload", zap.Int("remaining", len(remaining)))
		urls = append(urls, c.uploadRemaining(ctx, r, remaining, ImageToImageFallbackKeyBase, metrics.UploadPathFallback)...)
	}
	return urls
}

func (c *Coordinator) uploadRemaining(ctx context.Context, r *runState, images [][]byte, base, path string) []string {
	outcomes, err := c.uploader.UploadBatchOutcomes(ctx, images, base)
	if err != nil {
		r.log.Error("batch upload could not start", zap.String("base", base), zap.Error(err))
		r.lastErr = err
		return nil
	}
	urls := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		c.config.Recorder.RecordUpload(path, o.Succeeded())
		if o.Succeeded() {
			urls = append(urls, o.URL)
			continue
		}
		r.lastErr = o.Err
	}
	return urls
}

// checkResult turns cancellation and zero deliveries into errors.
func (c *Coordinator) checkResult(ctx context.Context, r *runState, result *Result) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pipeline: run %s cancelled: %w", r.id, err)
	}
	if len(result.URLs) > 0 {
		return nil
	}
	if result.Generated == 0 {
		kind, cause := classifyUnits(r.batch.Units)
		return &BatchError{Kind: kind, Requested: result.Requested, Err: cause}
	}
	return &BatchError{
		Kind:      FailureUploadFailed,
		Requested: result.Requested,
		Generated: result.Generated,
		Err:       r.lastErr,
	}
}

// classifyUnits decides why no unit produced an image. Any rejection means
// the provider was reachable.
func classifyUnits(units []imagegen.UnitResult) (FailureKind, error) {
	var last error
	for _, u := range units {
		if u.Err == nil {
			continue
		}
		last = u.Err
		if imagegen.IsRejection(u.Err) || errors.Is(u.Err, imagegen.ErrMissingReference) {
			return FailureAllRejected, u.Err
		}
	}
	return FailureProviderUnreachable, last
}

func (c *Coordinator) recordRun(result *Result, mode imagegen.Mode, start time.Time, runErr error) {
	run := metrics.RunRecord{
		ID:        result.CorrelationID,
		Mode:      mode.String(),
		Status:    metrics.RunStatusSuccess,
		Requested: result.Requested,
		Generated: result.Generated,
		Uploaded:  len(result.URLs),
		Enhanced:  result.Enhanced,
		StartTime: start,
		EndTime:   start.Add(result.Duration),
		Duration:  result.Duration,
	}
	if runErr != nil {
		run.Status = metrics.RunStatusError
		run.ErrorMsg = runErr.Error()
		var be *BatchError
		if errors.As(runErr, &be) {
			run.Failure = string(be.Kind)
		}
	}
	c.config.Recorder.RecordRun(run)
}
