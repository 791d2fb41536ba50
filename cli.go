package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"thumbgen/imagegen"
	"thumbgen/pipeline"
)

// errUsage marks command-line errors that map to ExitCodeUsage.
var errUsage = errors.New("usage error")

type options struct {
	prompt    string
	imagePath string
	count     int
	enhance   bool
	raw       bool
	jsonOut   bool
	style     pipeline.PromptFields
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("thumbgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: thumbgen -prompt \"...\" [-image ref.png] [-count N] [-enhance] [style flags]")
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.prompt, "prompt", "", "what the thumbnail should show")
	fs.StringVar(&opts.imagePath, "image", "", "reference image; switches to image-to-image")
	fs.IntVar(&opts.count, "count", 0, "number of variants, 1-4 (default 4, or 1 with -image)")
	fs.BoolVar(&opts.enhance, "enhance", false, "rewrite the prompt with the enhancement model (cached)")
	fs.BoolVar(&opts.raw, "raw", false, "send -prompt verbatim instead of the thumbnail instruction template")
	fs.BoolVar(&opts.jsonOut, "json", false, "print the result as JSON")

	fs.StringVar(&opts.style.Category, "category", "", "content category, e.g. Gaming")
	fs.StringVar(&opts.style.Mood, "mood", "", "mood, e.g. Energetic")
	fs.StringVar(&opts.style.Theme, "theme", "", "visual theme")
	fs.StringVar(&opts.style.PrimaryColor, "color", "", "dominant colour")
	fs.BoolVar(&opts.style.IncludeText, "include-text", false, "ask for a text overlay")
	fs.StringVar(&opts.style.TextStyle, "text-style", "", "text overlay style (implies -include-text)")
	fs.StringVar(&opts.style.ThumbnailStyle, "style", "", "thumbnail style, e.g. Cinematic")
	fs.StringVar(&opts.style.CustomPrompt, "custom", "", "additional requirements")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}

	opts.prompt = strings.TrimSpace(opts.prompt)
	if opts.style.TextStyle != "" {
		opts.style.IncludeText = true
	}
	if opts.count < 0 || opts.count > imagegen.MaxUnitCount {
		return nil, fmt.Errorf("%w: -count must be between %d and %d", errUsage, imagegen.MinUnitCount, imagegen.MaxUnitCount)
	}
	if opts.imagePath == "" && opts.prompt == "" && opts.style.CustomPrompt == "" {
		return nil, fmt.Errorf("%w: -prompt is required without -image", errUsage)
	}
	if opts.raw && opts.prompt == "" {
		return nil, fmt.Errorf("%w: -raw requires -prompt", errUsage)
	}
	return opts, nil
}

// buildRequest turns options into a pipeline request, reading the reference
// image from disk when one is given.
func buildRequest(opts *options) (pipeline.Request, error) {
	req := pipeline.Request{
		Prompt:    opts.prompt,
		UnitCount: opts.count,
		Mode:      imagegen.ModeTextToImage,
		Enhance:   opts.enhance,
	}
	if !opts.raw {
		style := opts.style
		req.Style = &style
	}

	if opts.imagePath != "" {
		data, err := os.ReadFile(opts.imagePath)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("read reference image: %w", err)
		}
		req.Mode = imagegen.ModeImageToImage
		req.ReferenceImage = data
		req.ReferenceMimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(opts.imagePath)))
	}
	return req, nil
}
