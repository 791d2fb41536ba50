package imagegen

import "context"

// pngImage returns a buffer with a PNG signature, distinguished by tag.
func pngImage(tag byte) []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, tag}
}

// fakeProvider delegates Submit to a function.
type fakeProvider struct {
	submit func(ctx context.Context, req SubmitRequest) (Stream, error)
}

func (f *fakeProvider) Submit(ctx context.Context, req SubmitRequest) (Stream, error) {
	return f.submit(ctx, req)
}

// imageProvider answers every request with a single PNG.
func imageProvider() *fakeProvider {
	return &fakeProvider{submit: func(ctx context.Context, req SubmitRequest) (Stream, error) {
		return NewPartStream(Part{ImageData: pngImage(1), MimeType: "image/png"}), nil
	}}
}

// failingStream yields parts and then err.
type failingStream struct {
	parts []Part
	err   error
}

func (s *failingStream) Next() (Part, error) {
	if len(s.parts) == 0 {
		return Part{}, s.err
	}
	p := s.parts[0]
	s.parts = s.parts[1:]
	return p, nil
}

func (s *failingStream) Close() error { return nil }

var _ Stream = (*failingStream)(nil)
