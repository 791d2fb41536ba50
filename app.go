package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"thumbgen/core"
	"thumbgen/enhance"
	"thumbgen/imagegen"
	"thumbgen/logging"
	"thumbgen/metrics"
	"thumbgen/pipeline"
	"thumbgen/promptcache"
	"thumbgen/shutdown"
	"thumbgen/storage"
	"thumbgen/upload"
)

// app holds the wired components for one CLI invocation.
type app struct {
	coordinator *pipeline.Coordinator
	history     *metrics.Store
	prom        *metrics.Prometheus
	cache       promptcache.Cache

	closers []func() error
}

func buildApp(ctx context.Context, cfg *core.Config, logger *logging.Logger, tracker *shutdown.OperationTracker) (*app, error) {
	a := &app{}
	t := cfg.Tuning

	provider, err := imagegen.NewOpenAIProvider(cfg)
	if err != nil {
		return nil, err
	}
	units, err := imagegen.NewUnitGenerator(provider, logger, imagegen.UnitConfig{
		TextTimeout:  t.TextUnitTimeout,
		ImageTimeout: t.ImageUnitTimeout,
	})
	if err != nil {
		return nil, err
	}
	batch, err := imagegen.NewBatchGenerator(units, logger, imagegen.BatchConfig{
		TextConcurrency:  t.TextConcurrency,
		ImageConcurrency: t.ImageConcurrency,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	uploader, err := upload.NewUploader(store, logger, upload.Config{
		Timeout:        t.UploadTimeout,
		InitialBackoff: t.UploadInitialBackoff,
		SingleAttempts: t.UploadSingleAttempts,
		BatchAttempts:  t.UploadBatchAttempts,
		Concurrency:    t.UploadConcurrency,
	})
	if err != nil {
		return nil, err
	}

	a.cache = a.buildCache(ctx, cfg, logger)

	chat, err := enhance.NewOpenAIEnhancer(cfg)
	if err != nil {
		return nil, err
	}
	enhancer, err := enhance.Cached(chat, a.cache, logger)
	if err != nil {
		return nil, err
	}

	a.history = metrics.NewStore(metrics.StoreConfig{HistoryCapacity: 100, Version: version}, time.Now())
	a.prom = metrics.NewPrometheus()

	a.coordinator, err = pipeline.NewCoordinator(batch, uploader, logger, pipeline.Config{
		BatchTimeout: t.BatchTimeout,
		Enhancer:     enhancer,
		Recorder:     metrics.Multi(a.history, a.prom),
		Tracker:      tracker,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// buildCache prefers Redis when configured and reachable, else memory.
func (a *app) buildCache(ctx context.Context, cfg *core.Config, logger *logging.Logger) promptcache.Cache {
	t := cfg.Tuning
	if cfg.RedisURL == "" {
		return promptcache.NewMemory(t.CacheMaxEntries, t.CacheTTL)
	}

	client := promptcache.NewRedisClient(cfg.RedisURL)
	if err := promptcache.Ping(ctx, client); err != nil {
		logger.Warn("redis unreachable, using in-memory prompt cache", zap.Error(err))
		_ = client.Close()
		return promptcache.NewMemory(t.CacheMaxEntries, t.CacheTTL)
	}
	cache, err := promptcache.NewRedis(client, t.CacheMaxEntries, t.CacheTTL, logger)
	if err != nil {
		logger.Warn("redis cache setup failed, using in-memory prompt cache", zap.Error(err))
		_ = client.Close()
		return promptcache.NewMemory(t.CacheMaxEntries, t.CacheTTL)
	}
	a.closers = append(a.closers, client.Close)
	return cache
}

// serveMetrics exposes /metrics on addr until Close runs.
func (a *app) serveMetrics(addr string, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))

	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

// Close releases everything buildApp and serveMetrics opened.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
