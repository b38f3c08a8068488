package minio

import (
	"context"
	"fmt"
	"io"
	"log"

	"aptitude-service/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client wraps the object store used for reference material and chunk files.
type Client struct {
	mc     *minio.Client
	region string
}

func NewClient(cfg config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing MinIO client: %w", err)
	}
	return &Client{mc: mc, region: cfg.Region}, nil
}

// EnsureBucket creates bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.mc.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("error checking if bucket %s exists: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return fmt.Errorf("error creating bucket %s: %w", bucket, err)
	}
	log.Printf("Created bucket: %s", bucket)
	return nil
}

func (c *Client) Upload(ctx context.Context, bucket, object string, reader io.Reader, size int64, contentType string) (minio.UploadInfo, error) {
	info, err := c.mc.PutObject(ctx, bucket, object, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("error uploading %s/%s: %w", bucket, object, err)
	}
	return info, nil
}

// Open returns a reader for bucket/object. The caller closes it.
func (c *Client) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	obj, err := c.mc.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("error getting %s/%s: %w", bucket, object, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("error getting %s/%s: %w", bucket, object, err)
	}
	return obj, nil
}
