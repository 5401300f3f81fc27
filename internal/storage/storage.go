// Package storage issues presigned URLs against an S3-compatible object store,
// keeping the server itself off the upload and download paths.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"flowbeat/internal/shared"
)

const presignExpiry = 15 * time.Minute

// Service issues presigned put/get URLs scoped under per-user key prefixes.
type Service struct {
	cfg shared.StorageConfig
	now func() time.Time
}

// NewService creates a storage service from configuration.
func NewService(cfg shared.StorageConfig) (*Service, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: storage bucket", shared.ErrMissingConfig)
	}
	return &Service{cfg: cfg, now: time.Now}, nil
}

func (s *Service) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKey, s.cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return s3.NewPresignClient(client), nil
}

// ObjectKey builds the storage key for a user-owned object:
// users/{userID}/{kind}/{unix-timestamp}-{name}. Path separators in the
// name are flattened so a client cannot escape its prefix.
func (s *Service) ObjectKey(userID, kind, name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return fmt.Sprintf("users/%s/%s/%d-%s", userID, kind, s.now().Unix(), name)
}

// PresignPut returns the object key and a presigned upload URL for it.
func (s *Service) PresignPut(ctx context.Context, userID, kind, name string) (string, string, error) {
	client, err := s.presignClient(ctx)
	if err != nil {
		return "", "", err
	}

	key := s.ObjectKey(userID, kind, name)

	req, err := client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("failed to presign upload: %w", err)
	}

	return key, req.URL, nil
}

// PresignGet returns a presigned download URL for an existing object key.
func (s *Service) PresignGet(ctx context.Context, key string) (string, error) {
	client, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}

	return req.URL, nil
}
