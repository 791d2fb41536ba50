package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"thumbgen/imagegen"
)

// S3Config configures an S3Store. Endpoint targets S3-compatible services
// such as MinIO or R2; static keys are optional and fall back to the default
// AWS credential chain.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Store stores objects in an S3 bucket.
type S3Store struct {
	client        *s3.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewS3Store loads AWS configuration and creates the store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: S3 bucket must be provided")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}

	return NewS3StoreFromConfig(awsCfg, cfg), nil
}

// NewS3StoreFromConfig creates the store from an already loaded aws.Config.
func NewS3StoreFromConfig(awsCfg aws.Config, cfg S3Config) *S3Store {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		if cfg.Endpoint != "" {
			publicBase = joinURL(cfg.Endpoint, cfg.Bucket)
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, awsCfg.Region)
		}
	}

	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		publicBaseURL: publicBase,
	}
}

// PutObject implements Store. The object key gets an extension matching
// contentType.
func (s *S3Store) PutObject(ctx context.Context, data []byte, key, contentType string) (string, error) {
	objectKey, err := cleanKey(s.prefix, key+imagegen.ExtensionForMimeType(contentType))
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("storage: put s3://%s/%s: %w", s.bucket, objectKey, err)
	}
	return joinURL(s.publicBaseURL, objectKey), nil
}

var _ Store = (*S3Store)(nil)
