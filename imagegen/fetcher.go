package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxImageBytes bounds a fetched image.
const DefaultMaxImageBytes = 20 << 20

// Fetcher downloads generated images from the temporary URLs some providers
// return instead of inline bytes. URLs typically expire after about an hour,
// so images are fetched as soon as the response arrives.
//
// Thread Safety: Fetcher is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher. A nil client gets a 60 second timeout and a
// non-positive maxBytes takes DefaultMaxImageBytes.
func NewFetcher(client *http.Client, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads url and returns the body and its Content-Type.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("imagegen: URL cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to create download request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("imagegen: download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to read image data: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("imagegen: image exceeds %d bytes", f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = DetectMimeType(data)
	}
	return data, contentType, nil
}
