package imagegen

import (
	"context"
	"io"
)

// Mode selects how a batch is generated.
type Mode int

const (
	// ModeTextToImage generates from the prompt alone. Units run all at once.
	ModeTextToImage Mode = iota
	// ModeImageToImage restyles a reference image. Units run in capped groups.
	ModeImageToImage
)

func (m Mode) String() string {
	switch m {
	case ModeTextToImage:
		return "text-to-image"
	case ModeImageToImage:
		return "image-to-image"
	default:
		return "unknown"
	}
}

// SubmitRequest is one generation call.
type SubmitRequest struct {
	Prompt string

	// Reference is the optional image to restyle.
	Reference         []byte
	ReferenceMimeType string
}

// Part is one chunk of a provider response. A part carries image bytes,
// text commentary, or both.
type Part struct {
	ImageData []byte
	MimeType  string
	Text      string
}

// Stream yields the parts of a provider response. Next returns io.EOF once
// the response is complete.
type Stream interface {
	Next() (Part, error)
	Close() error
}

// Provider is the interface for image generation backends.
//
// Submit should honor ctx; callers additionally abandon calls that outlive
// their deadline.
type Provider interface {
	Submit(ctx context.Context, req SubmitRequest) (Stream, error)
}

// PartStream is a Stream over parts that are already in memory. Providers
// without a streaming API return their whole response through it.
type PartStream struct {
	parts []Part
	pos   int
}

// NewPartStream returns a Stream that yields parts in order.
func NewPartStream(parts ...Part) *PartStream {
	return &PartStream{parts: parts}
}

// Next implements Stream.
func (s *PartStream) Next() (Part, error) {
	if s.pos >= len(s.parts) {
		return Part{}, io.EOF
	}
	p := s.parts[s.pos]
	s.pos++
	return p, nil
}

// Close implements Stream.
func (s *PartStream) Close() error { return nil }

var _ Stream = (*PartStream)(nil)
