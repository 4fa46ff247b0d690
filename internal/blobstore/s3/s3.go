package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vbonduro/propertydesk/internal/blobstore"
)

var _ blobstore.BlobStore = (*S3BlobStore)(nil)

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL replaces <endpoint>/<bucket> in returned URLs, e.g. a CDN host.
	PublicURL string
}

type S3BlobStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewS3BlobStore connects to an S3-compatible object store (MinIO in
// deployments) and makes sure the bucket exists.
func NewS3BlobStore(ctx context.Context, opts Options, logger *slog.Logger) (*S3BlobStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", opts.Endpoint, err)
	}

	if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ctx, opts.Bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("failed to make bucket %s: %w", opts.Bucket, err)
		}
		logger.Info("bucket already exists", "bucket", opts.Bucket)
	} else {
		logger.Info("bucket created", "bucket", opts.Bucket)
	}

	return &S3BlobStore{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: baseURL(client.EndpointURL().String(), opts.Bucket, opts.PublicURL),
		logger:  logger,
	}, nil
}

func baseURL(endpointURL, bucket, publicURL string) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/")
	}
	return strings.TrimRight(endpointURL, "/") + "/" + bucket
}

// BaseURL is the prefix of every URL Put returns.
func (s *S3BlobStore) BaseURL() string { return s.baseURL }

func (s *S3BlobStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	s.logger.Debug("object uploaded", "bucket", info.Bucket, "key", info.Key, "size", info.Size)
	return s.baseURL + "/" + key, nil
}

func (s *S3BlobStore) Delete(ctx context.Context, url string) error {
	key, err := keyFromURL(s.baseURL, url)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

func keyFromURL(base, url string) (string, error) {
	key, ok := strings.CutPrefix(url, base+"/")
	if !ok || key == "" {
		return "", fmt.Errorf("url %q is not in bucket %s", url, base)
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, nil
}
