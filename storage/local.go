package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"thumbgen/imagegen"
)

// LocalStore writes objects under a directory. URLs are the public base URL
// joined with the object key; with the default "file://" base they are
// absolute file URLs.
type LocalStore struct {
	root          string
	publicBaseURL string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "./data/images"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve local dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create local dir: %w", err)
	}
	if publicBaseURL == "" || publicBaseURL == "file://" {
		publicBaseURL = "file://" + filepath.ToSlash(abs)
	}
	return &LocalStore{root: abs, publicBaseURL: publicBaseURL}, nil
}

// Root returns the absolute storage directory.
func (s *LocalStore) Root() string { return s.root }

// PutObject implements Store. The file is written to a temp file and renamed
// into place so readers never see a partial image.
func (s *LocalStore) PutObject(ctx context.Context, data []byte, key, contentType string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	objectKey, err := cleanKey("", key+imagegen.ExtensionForMimeType(contentType))
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.root, filepath.FromSlash(objectKey))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), "upload-*.tmp")
	if err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("storage: write %s: %w", objectKey, err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("storage: sync %s: %w", objectKey, err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	if err := os.Rename(tempFile.Name(), path); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}

	return joinURL(s.publicBaseURL, objectKey), nil
}

var _ Store = (*LocalStore)(nil)
