package minio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"resume-pipeline/internal/shared/storage/object"
)

// Options configures the S3-compatible endpoint.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store implements object.Store on MinIO or any S3-compatible backend.
type Store struct {
	client *minio.Client
	bucket string
}

func (o Options) validate() error {
	if o.Endpoint == "" {
		return fmt.Errorf("minio endpoint is required")
	}
	if o.AccessKey == "" || o.SecretKey == "" {
		return fmt.Errorf("minio credentials are required")
	}
	if o.Bucket == "" {
		return fmt.Errorf("minio bucket is required")
	}
	return nil
}

// New connects to the endpoint and ensures the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Store{client: cli, bucket: opts.Bucket}, nil
}

// Save streams the upload to the bucket under the owner's namespace.
func (s *Store) Save(ctx context.Context, ownerID int64, fileName string, r io.Reader) (object.Stored, error) {
	key, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return object.Stored{}, err
	}
	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return object.Stored{}, err
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, body, -1, minio.PutObjectOptions{ContentType: mimeType})
	if err != nil {
		return object.Stored{}, fmt.Errorf("minio put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return object.Stored{Key: key, Size: info.Size, MimeType: mimeType}, nil
}

// Open returns the object body. Missing keys surface on the first Read.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return obj, nil
}

var _ object.Store = (*Store)(nil)
