package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"thumbgen/imagegen"
	"thumbgen/logging"
	"thumbgen/upload"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func pngImage(tag string) []byte {
	return append(append([]byte(nil), pngSignature...), []byte(tag)...)
}

// scriptedProvider answers the n-th Submit call (1-based) with behavior(n).
type scriptedProvider struct {
	calls    atomic.Int64
	mu       sync.Mutex
	prompts  []string
	behavior func(ctx context.Context, call int) (imagegen.Stream, error)
}

func (p *scriptedProvider) Submit(ctx context.Context, req imagegen.SubmitRequest) (imagegen.Stream, error) {
	call := int(p.calls.Add(1))
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()
	return p.behavior(ctx, call)
}

func (p *scriptedProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

func imageStream(call int) imagegen.Stream {
	return imagegen.NewPartStream(
		imagegen.Part{Text: "here you go"},
		imagegen.Part{ImageData: pngImage(fmt.Sprintf("img-%d", call)), MimeType: "image/png"},
	)
}

func alwaysImages(_ context.Context, call int) (imagegen.Stream, error) {
	return imageStream(call), nil
}

// memoryStore is an upload.ObjectStore that can fail selected puts.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	fail    func(key string, data []byte) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) PutObject(_ context.Context, data []byte, key, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	if s.fail != nil {
		if err := s.fail(key, data); err != nil {
			return "", err
		}
	}
	s.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (s *memoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

func (s *memoryStore) Puts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.puts...)
}

func countPrefix(keys []string, prefix string) int {
	n := 0
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

func hasTag(data []byte, tag string) bool {
	return bytes.HasSuffix(data, []byte(tag))
}

var errStoreDown = errors.New("store unavailable")

type harness struct {
	provider    *scriptedProvider
	store       *memoryStore
	coordinator *Coordinator
}

// newHarness builds a coordinator over the real unit, batch and upload
// layers with short timeouts and no backoff.
func newHarness(t *testing.T, behavior func(context.Context, int) (imagegen.Stream, error), cfg Config) *harness {
	t.Helper()
	logger := logging.NewNop()

	provider := &scriptedProvider{behavior: behavior}
	units, err := imagegen.NewUnitGenerator(provider, logger, imagegen.UnitConfig{
		TextTimeout:  100 * time.Millisecond,
		ImageTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewUnitGenerator: %v", err)
	}
	batch, err := imagegen.NewBatchGenerator(units, logger, imagegen.DefaultBatchConfig())
	if err != nil {
		t.Fatalf("NewBatchGenerator: %v", err)
	}

	store := newMemoryStore()
	uploader, err := upload.NewUploader(store, logger, upload.Config{
		Timeout:        time.Second,
		InitialBackoff: 0,
		SingleAttempts: 2,
		BatchAttempts:  3,
		Concurrency:    3,
	})
	if err != nil {
		t.Fatalf("NewUploader: %v", err)
	}

	coordinator, err := NewCoordinator(batch, uploader, logger, cfg)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return &harness{provider: provider, store: store, coordinator: coordinator}
}
