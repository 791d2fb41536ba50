// Package storage puts generated images into durable storage and returns
// their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"thumbgen/core"
	"thumbgen/logging"
)

// ErrInvalidKey is returned for empty keys or keys that escape the store root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Store is a durable storage provider. PutObject is synchronous and returns
// the public URL of the stored object. Errors may be transient or permanent;
// callers treat them all as retryable.
type Store interface {
	PutObject(ctx context.Context, data []byte, key, contentType string) (string, error)
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg core.StorageConfig, logger *logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	switch strings.ToLower(cfg.Backend) {
	case "s3":
		store, err := NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using S3 storage",
			zap.String("bucket", cfg.S3Bucket),
			zap.String("region", cfg.S3Region),
			zap.String("prefix", cfg.S3Prefix))
		return store, nil
	case "local", "":
		store, err := NewLocalStore(cfg.LocalDir, cfg.LocalPublicBaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("using local storage", zap.String("dir", store.Root()))
		return store, nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// cleanKey validates key and joins it under prefix with forward slashes.
func cleanKey(prefix, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return cleaned, nil
	}
	return prefix + "/" + cleaned, nil
}

// joinURL appends an object key to a base URL.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
