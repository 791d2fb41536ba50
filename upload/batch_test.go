package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// trackingStore records group boundaries and peak concurrency.
type trackingStore struct {
	mu      sync.Mutex
	active  int
	peak    int
	clock   int
	started map[string]int
	ended   map[string]int
	fail    map[string]bool
}

func newTrackingStore() *trackingStore {
	return &trackingStore{started: map[string]int{}, ended: map[string]int{}, fail: map[string]bool{}}
}

func (s *trackingStore) PutObject(ctx context.Context, data []byte, key, contentType string) (string, error) {
	s.mu.Lock()
	s.clock++
	if _, ok := s.started[key]; !ok {
		s.started[key] = s.clock
	}
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock++
	s.ended[key] = s.clock
	s.active--
	if s.fail[key] {
		return "", fmt.Errorf("rejected %s", key)
	}
	return "https://cdn.example.com/" + key, nil
}

func images(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = append(append([]byte{}, testImage...), byte(i))
	}
	return out
}

func TestUploadBatch_GroupsAndPartialFailure(t *testing.T) {
	store := newTrackingStore()
	u, _ := newTestUploader(t, store, DefaultConfig())
	u.now = func() time.Time { return time.UnixMilli(1700000000000) }
	store.fail["generated_image_1700000000000_2"] = true

	urls, err := u.UploadBatch(context.Background(), images(5), "generated_image")
	if err != nil {
		t.Fatalf("UploadBatch() error = %v", err)
	}

	if len(urls) != 4 {
		t.Errorf("got %d URLs, want 4: %v", len(urls), urls)
	}
	if store.peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", store.peak)
	}

	// Group two (ordinals 4, 5) starts only after group one, including the
	// failing upload and its retries, has settled.
	for _, ordinal := range []int{1, 2, 3} {
		k1 := fmt.Sprintf("generated_image_1700000000000_%d", ordinal)
		for _, later := range []int{4, 5} {
			k2 := fmt.Sprintf("generated_image_1700000000000_%d", later)
			if store.ended[k1] > store.started[k2] {
				t.Errorf("%s started before %s settled", k2, k1)
			}
		}
	}

	// Group-then-arrival order: the last two URLs belong to group two.
	tail := map[string]bool{urls[2]: true, urls[3]: true}
	if !tail["https://cdn.example.com/generated_image_1700000000000_4"] ||
		!tail["https://cdn.example.com/generated_image_1700000000000_5"] {
		t.Errorf("group order not preserved: %v", urls)
	}
}

func TestUploadBatch_UsesBatchAttempts(t *testing.T) {
	store := newFakeStore()
	u, rec := newTestUploader(t, store, Config{BatchAttempts: 3})
	u.now = func() time.Time { return time.UnixMilli(42) }
	store.always["img_42_1"] = true

	urls, err := u.UploadBatch(context.Background(), images(1), "img")
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 0 {
		t.Errorf("expected no URLs, got %v", urls)
	}
	if store.callCount("img_42_1") != 3 {
		t.Errorf("attempts = %d, want 3", store.callCount("img_42_1"))
	}
	if rec.total() != 3*time.Second {
		t.Errorf("backoff total = %v, want 1s+2s", rec.total())
	}
}

func TestUploadBatch_UniqueKeys(t *testing.T) {
	store := newFakeStore()
	u, _ := newTestUploader(t, store, DefaultConfig())

	outcomes, err := u.UploadBatchOutcomes(context.Background(), images(4), "image_to_image_fallback")
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	indexes := map[int]bool{}
	for _, o := range outcomes {
		if seen[o.Key] {
			t.Errorf("duplicate key %s", o.Key)
		}
		seen[o.Key] = true
		indexes[o.Index] = true
		if !o.Succeeded() {
			t.Errorf("outcome %+v should succeed", o)
		}
	}
	if len(indexes) != 4 {
		t.Errorf("expected an outcome for each input index, got %v", indexes)
	}
}

func TestUploadBatch_InputValidation(t *testing.T) {
	u, _ := newTestUploader(t, newFakeStore(), DefaultConfig())

	if _, err := u.UploadBatch(context.Background(), images(1), ""); !errors.Is(err, ErrEmptyBaseName) {
		t.Errorf("err = %v, want ErrEmptyBaseName", err)
	}

	urls, err := u.UploadBatch(context.Background(), nil, "x")
	if err != nil || len(urls) != 0 {
		t.Errorf("empty input should yield no URLs and no error, got %v, %v", urls, err)
	}
}

func TestUploadBatch_CancelledSkipsRemainingGroups(t *testing.T) {
	store := newFakeStore()
	u, _ := newTestUploader(t, store, Config{Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	urls, err := u.UploadBatch(ctx, images(3), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 0 {
		t.Errorf("cancelled batch should upload nothing, got %v", urls)
	}
}
