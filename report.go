package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"thumbgen/core"
	"thumbgen/metrics"
	"thumbgen/pipeline"
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	color.New(color.FgCyan, color.Bold).Fprintf(w, "━━━ %s ━━━\n", title)
	fmt.Fprintln(w)
}

func printResult(w io.Writer, result *pipeline.Result) {
	printHeader(w, "Thumbnails Ready")

	for i, url := range result.URLs {
		color.New(color.FgGreen).Fprintf(w, "  ✓ ")
		fmt.Fprintf(w, "%d. %s\n", i+1, url)
	}

	dim := color.New(color.FgHiBlack)
	fmt.Fprintln(w)
	dim.Fprintf(w, "  %d/%d generated, %d delivered in %v\n",
		result.Generated, result.Requested, len(result.URLs), result.Duration.Round(time.Millisecond))
	if result.Enhanced {
		dim.Fprintln(w, "  prompt enhanced")
	}
	dim.Fprintf(w, "  run %s\n", result.CorrelationID)
}

func printJSON(w io.Writer, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func printFailure(w io.Writer, err error) {
	failColor := color.New(color.FgRed, color.Bold)
	failColor.Fprintf(w, "✗ %s\n", failureTitle(err))
	color.New(color.FgRed).Fprintf(w, "    └─ %s\n", err.Error())

	var cfgErr *core.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Action != "" {
		color.New(color.FgYellow).Fprintf(w, "    → %s\n", cfgErr.Action)
	}
}

func failureTitle(err error) string {
	var be *pipeline.BatchError
	if errors.As(err, &be) {
		switch be.Kind {
		case pipeline.FailureProviderUnreachable:
			return "Image provider unreachable"
		case pipeline.FailureAllRejected:
			return "Image provider returned no images"
		case pipeline.FailureUploadFailed:
			return "Images generated but could not be stored"
		}
	}
	var cfgErr *core.ConfigError
	if errors.As(err, &cfgErr) {
		return "Configuration error"
	}
	return "Generation failed"
}

func printSummary(w io.Writer, m metrics.RunMetrics) {
	dim := color.New(color.FgHiBlack)
	dim.Fprintf(w, "  units %d/%d, uploads %d/%d, cache hits %d/%d\n",
		m.Units.Succeeded, m.Units.Total,
		m.Uploads.Succeeded, m.Uploads.Total,
		m.Cache.Succeeded, m.Cache.Total)
}
