package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"thumbgen/core"
	"thumbgen/logging"
	"thumbgen/shutdown"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return core.ExitCodeSuccess
		}
		fmt.Fprintln(stderr, err)
		return core.ExitCodeUsage
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(stderr, "Warning: could not load .env: %v\n", err)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		printFailure(stderr, err)
		return core.ExitCodeError
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.DevMode,
		FilePath:    cfg.LogFile,
		Level:       logging.LevelFromEnv(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer func() { _ = logger.Sync() }()

	req, err := buildRequest(opts)
	if err != nil {
		printFailure(stderr, err)
		return core.ExitCodeUsage
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := shutdown.NewOperationTracker()
	signals := shutdown.NewSignalCounter(2,
		func() {
			logger.Info("Received interrupt signal. Cancelling run...")
			cancel()
		},
		func() {
			logger.Warn("Second interrupt, exiting immediately", zap.Strings("active_runs", tracker.Active()))
			_ = logger.Sync()
			os.Exit(core.ExitCodeSIGINT)
		},
	)
	shutdown.Watch(ctx, signals)

	a, err := buildApp(ctx, cfg, logger, tracker)
	if err != nil {
		logger.Error("Failed to initialize pipeline", zap.Error(err))
		printFailure(stderr, err)
		return core.ExitCodeError
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Shutdown cleanup failed", zap.Error(err))
		}
	}()
	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr, logger)
	}

	logger.Info("Configuration loaded",
		zap.String("version", version),
		zap.String("image_model", cfg.OpenAIImageModel),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("redis_cache", cfg.RedisURL != ""),
		zap.String("mode", req.Mode.String()),
	)

	result, runErr := a.coordinator.Run(ctx, req)

	tracker.Close()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := tracker.Wait(waitCtx); err != nil {
		logger.Warn("Runs still active at exit", zap.Strings("ids", tracker.Active()))
	}

	if runErr != nil {
		printFailure(stderr, runErr)
		if signals.Count() > 0 {
			return core.ExitCodeSIGINT
		}
		return core.ExitCodeError
	}

	if opts.jsonOut {
		if err := printJSON(stdout, result); err != nil {
			logger.Error("Failed to encode result", zap.Error(err))
			return core.ExitCodeError
		}
		return core.ExitCodeSuccess
	}
	printResult(stdout, result)
	printSummary(stdout, a.history.GetRunMetrics())
	return core.ExitCodeSuccess
}
