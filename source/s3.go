package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Opener reads import files from an S3 compatible object store. Locations
// are "bucket/key", or just "key" when a default bucket is configured.
type S3Opener struct {
	client *minio.Client
	bucket string
}

func NewS3Opener(cfg S3Config) (*S3Opener, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("source: s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("source: s3 access key and secret key are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("source: init s3 client: %w", err)
	}
	return &S3Opener{client: client, bucket: strings.TrimSpace(cfg.Bucket)}, nil
}

func (o *S3Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if o == nil || o.client == nil {
		return nil, fmt.Errorf("source: s3 opener is not configured")
	}
	bucket, key, err := o.split(location)
	if err != nil {
		return nil, err
	}
	object, err := o.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("source: get s3://%s/%s: %w", bucket, key, err)
	}
	// GetObject is lazy; Stat surfaces missing keys before the import starts.
	if _, err := object.Stat(); err != nil {
		_ = object.Close()
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("source: stat s3://%s/%s: %w", bucket, key, err)
	}
	return object, nil
}

func (o *S3Opener) split(location string) (string, string, error) {
	location = strings.TrimLeft(strings.TrimSpace(location), "/")
	if location == "" {
		return "", "", fmt.Errorf("source: s3 key is required")
	}
	bucket, key, ok := strings.Cut(location, "/")
	if ok && bucket != "" && key != "" && (o.bucket == "" || bucket == o.bucket) {
		return bucket, key, nil
	}
	if o.bucket == "" {
		return "", "", fmt.Errorf("source: s3 bucket is required for %q", location)
	}
	return o.bucket, location, nil
}
