package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds the configuration for S3 storage.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// Compile-time check that S3Storage implements Storage.
var _ Storage = (*S3Storage)(nil)

// S3Storage wraps LocalStorage and adds S3 object resolution. Plain paths
// keep their local behavior; s3:// URIs are downloaded into the temp
// directory on Fetch and uploaded on Store.
type S3Storage struct {
	*LocalStorage
	client *s3.Client
	bucket string
	region string
}

// NewS3Storage creates a new S3Storage instance.
// The tempDir parameter specifies where fetched files are placed.
// The cfg parameter contains S3 configuration.
func NewS3Storage(tempDir string, cfg S3Config) (*S3Storage, error) {
	local, err := NewLocalStorage(tempDir)
	if err != nil {
		return nil, err
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Storage{
		LocalStorage: local,
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
	}, nil
}

// Fetch downloads the object behind an s3:// URI into the temp directory
// and returns the local path. Plain paths resolve through LocalStorage.
func (s *S3Storage) Fetch(ctx context.Context, uri string) (string, error) {
	if !IsS3URI(uri) {
		return s.LocalStorage.Fetch(ctx, uri)
	}

	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, uri)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return "", fmt.Errorf("download from S3: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	f, err := s.tempFile("fetch")
	if err != nil {
		return "", err
	}

	path := f.Name()
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write fetched object: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close fetched object: %w", err)
	}

	return path, nil
}

// Store uploads the local file at path to an s3:// URI and returns the
// public URL. Plain destination paths resolve through LocalStorage.
func (s *S3Storage) Store(ctx context.Context, path, uri string) (string, error) {
	if !IsS3URI(uri) {
		return s.LocalStorage.Store(ctx, path, uri)
	}

	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, uri)
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return "", fmt.Errorf("open file for upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
	return url, nil
}
