package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/usecase/transcript"
	"github.com/johnquangdev/meetcore/pkg/config"
)

// MinIOStore writes transcript artifacts to an S3 compatible bucket
type MinIOStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// Ensure MinIOStore implements transcript.ArtifactStore
var _ transcript.ArtifactStore = (*MinIOStore)(nil)

// NewMinIOStore creates a new MinIO store and makes sure the bucket exists
func NewMinIOStore(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinIOStore{
		client: client,
		bucket: cfg.BucketName,
		logger: logger,
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}
	return store, nil
}

// ensureBucket creates the bucket when missing. Artifacts stay private.
func (m *MinIOStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	if m.logger != nil {
		m.logger.Info("🪣 Bucket created", zap.String("bucket", m.bucket))
	}
	return nil
}

// Put uploads body under key and returns its bucket/key location
func (m *MinIOStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return m.bucket + "/" + key, nil
}

// PresignedURL returns a temporary download link for a stored artifact
func (m *MinIOStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// Ping checks the bucket is reachable
func (m *MinIOStore) Ping(ctx context.Context) error {
	if _, err := m.client.BucketExists(ctx, m.bucket); err != nil {
		return fmt.Errorf("failed to reach bucket %s: %w", m.bucket, err)
	}
	return nil
}
