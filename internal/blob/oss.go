package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// Prefix is prepended to every key.
	Prefix string
}

// OSS stores objects in an Alibaba Cloud OSS bucket.
type OSS struct {
	bucket *oss.Bucket
	prefix string
}

func NewOSS(c OSSConfig) (*OSS, error) {
	if c.Endpoint == "" || c.AccessKeyID == "" || c.AccessKeySecret == "" || c.Bucket == "" {
		return nil, fmt.Errorf("blob: oss endpoint, access key id, access key secret and bucket are required")
	}

	client, err := oss.New(c.Endpoint, c.AccessKeyID, c.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("blob: create oss client: %w", err)
	}

	bucket, err := client.Bucket(c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("blob: get oss bucket: %w", err)
	}

	slog.Info("blob: oss client initialized", "endpoint", c.Endpoint, "bucket", c.Bucket)

	return &OSS{bucket: bucket, prefix: c.Prefix}, nil
}

func (s *OSS) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}

	if err := s.bucket.PutObject(s.prefix+key, r, opts...); err != nil {
		return fmt.Errorf("blob: put %s: %w", key, err)
	}

	return nil
}
