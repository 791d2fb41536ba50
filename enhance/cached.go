package enhance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"thumbgen/logging"
	"thumbgen/promptcache"
)

// Outcome reports how a cached enhancement was produced.
type Outcome struct {
	Prompt   string
	Enhanced bool
	CacheHit bool
}

// CachedEnhancer fronts an Enhancer with a promptcache.Cache. A failed
// enhancement falls back to the original prompt and is not cached.
type CachedEnhancer struct {
	enhancer Enhancer
	cache    promptcache.Cache
	logger   *logging.Logger
}

// Cached wraps enhancer with cache.
func Cached(enhancer Enhancer, cache promptcache.Cache, logger *logging.Logger) (*CachedEnhancer, error) {
	if enhancer == nil {
		return nil, fmt.Errorf("enhance: enhancer cannot be nil")
	}
	if cache == nil {
		return nil, fmt.Errorf("enhance: cache cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("enhance: logger cannot be nil")
	}
	return &CachedEnhancer{
		enhancer: enhancer,
		cache:    cache,
		logger:   logger.Named("enhance"),
	}, nil
}

// Enhance implements Enhancer. It never returns an error for a non-blank
// prompt: enhancement failures yield the prompt unchanged.
func (c *CachedEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	out := c.EnhanceWithOutcome(ctx, prompt)
	return out.Prompt, nil
}

// EnhanceWithOutcome is Enhance with hit and fallback reporting.
func (c *CachedEnhancer) EnhanceWithOutcome(ctx context.Context, prompt string) Outcome {
	log := c.logger.With(zap.String("cache_key", promptcache.Key(prompt)))

	if cached, ok := c.cache.Lookup(ctx, prompt); ok {
		log.Debug("enhanced prompt served from cache")
		return Outcome{Prompt: cached, Enhanced: true, CacheHit: true}
	}

	enhanced, err := c.enhancer.Enhance(ctx, prompt)
	if err != nil {
		log.Warn("prompt enhancement failed, using original prompt", zap.Error(err))
		return Outcome{Prompt: prompt}
	}

	c.cache.Store(ctx, prompt, enhanced)
	log.Debug("enhanced prompt cached", zap.Int("length", len(enhanced)))
	return Outcome{Prompt: enhanced, Enhanced: true}
}

var _ Enhancer = (*CachedEnhancer)(nil)
