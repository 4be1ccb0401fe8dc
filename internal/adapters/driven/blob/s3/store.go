// Package s3 stores uploaded files in an S3 bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/docintel/internal/core/domain"
	"github.com/custodia-labs/docintel/internal/core/ports/driven"
	"github.com/custodia-labs/docintel/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// DefaultURLExpiry is the lifetime of presigned download URLs.
const DefaultURLExpiry = 15 * time.Minute

// Client is the subset of the S3 API used by the store.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner creates time-limited download URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds configuration for the S3 store.
type Config struct {
	Bucket    string
	Prefix    string
	Region    string
	URLExpiry time.Duration
}

// Store keeps blobs as objects under Prefix in Bucket.
type Store struct {
	client    Client
	presigner Presigner
	bucket    string
	prefix    string
	expiry    time.Duration
}

// NewStore loads the default AWS credential chain and creates a client.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", domain.ErrInvalidInput)
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return NewWithClient(client, s3.NewPresignClient(client), cfg), nil
}

// NewWithClient wraps existing clients. presigner may be nil, in which case
// URL returns s3:// locations.
func NewWithClient(client Client, presigner Presigner, cfg Config) *Store {
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = DefaultURLExpiry
	}
	return &Store{
		client:    client,
		presigner: presigner,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		expiry:    cfg.URLExpiry,
	}
}

// Upload puts r under key and returns the s3:// location.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	objectKey := s.objectKey(key)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, objectKey)
	logger.Debug("uploaded blob to %s", location)
	return location, nil
}

// Download streams the object stored under key.
func (s *Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download %s from S3: %w", key, err)
	}
	return out.Body, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check %s in S3: %w", key, err)
}

// Delete removes key. S3 treats deleting a missing object as success.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}
	return nil
}

// URL returns a presigned GET URL for key.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	objectKey := s.objectKey(key)
	if s.presigner == nil {
		return fmt.Sprintf("s3://%s/%s", s.bucket, objectKey), nil
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *Store) objectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
