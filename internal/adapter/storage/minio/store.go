// Package minio stores recorded answers in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fairyhunter13/ai-mock-interview/internal/config"
	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

// objectAPI is the subset of *minio.Client used by Store.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Store implements domain.MediaStore.
type Store struct {
	client objectAPI
	bucket string
}

// New builds a minio client from S3_* settings.
func New(cfg config.Config) (*Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("op=media.new: %w", err)
	}
	return &Store{client: client, bucket: cfg.S3Bucket}, nil
}

// EnsureBucket creates the bucket when missing.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("op=media.ensure_bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("op=media.ensure_bucket: %w", err)
	}
	slog.Info("media bucket created", slog.String("bucket", s.bucket))
	return nil
}

// Put uploads data under key.
func (s *Store) Put(ctx domain.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("op=media.put: %w", err)
	}
	return nil
}

// Ping checks the bucket is reachable; used by readiness.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s missing", s.bucket)
	}
	return nil
}
