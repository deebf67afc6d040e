// Package largeobject implements the object store used for video uploads.
// It is the same S3-compatible wire protocol as the general bucket store but
// tuned for large payloads: a dedicated bucket and multipart upload settings
// sized for video files.
package largeobject

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/storage"
)

// Config holds the connection settings for the large-object store.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string

	// PartSize is the multipart upload part size in bytes. Zero selects
	// the 64 MiB default.
	PartSize uint64

	// Concurrency is the number of parts uploaded in parallel. Zero
	// selects the default of 4.
	Concurrency uint
}

const (
	defaultPartSize    = 64 << 20
	defaultConcurrency = 4
)

// Store implements storage.ObjectStore for large video objects.
type Store struct {
	client      *minio.Client
	bucket      string
	publicBase  string
	partSize    uint64
	concurrency uint
}

// New creates the large-object store and verifies the target bucket is
// reachable.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create large-object store client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("verify bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist or is not accessible", cfg.Bucket)
	}

	partSize := cfg.PartSize
	if partSize == 0 {
		partSize = defaultPartSize
	}
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = defaultConcurrency
	}

	return &Store{
		client:      client,
		bucket:      cfg.Bucket,
		publicBase:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		partSize:    partSize,
		concurrency: concurrency,
	}, nil
}

// Put stores the object using multipart upload and returns its key and
// public URL.
func (s *Store) Put(ctx context.Context, input *storage.PutInput) (*storage.PutResult, error) {
	opts := minio.PutObjectOptions{
		ContentType:    input.ContentType,
		PartSize:       s.partSize,
		NumThreads:     s.concurrency,
		SendContentMd5: false,
	}

	if _, err := s.client.PutObject(ctx, s.bucket, input.Key, input.Data, input.Size, opts); err != nil {
		return nil, fmt.Errorf("put large object %q: %w", input.Key, err)
	}

	return &storage.PutResult{Key: input.Key, URL: s.objectURL(input.Key)}, nil
}

// Delete removes the object by key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete large object %q: %w", key, err)
	}
	return nil
}

// URL returns the public URL for the given key.
func (s *Store) URL(_ context.Context, key string) (string, error) {
	return s.objectURL(key), nil
}

// Provider identifies this store as the large-object backend.
func (s *Store) Provider() domain.StorageProvider {
	return domain.ProviderLargeObject
}

// Ping verifies the bucket is still reachable, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("ping bucket %q: %w", s.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

func (s *Store) objectURL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, key)
}
