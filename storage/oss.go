package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"kb-portal/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore keeps blobs in an Aliyun OSS bucket.
type OSSStore struct {
	bucket     *oss.Bucket
	endpoint   string
	bucketName string
	publicBase string
}

func NewOSSStore(cfg config.OSSConfig) (*OSSStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("oss: endpoint, access key and bucket are required")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	if loc, err := client.GetBucketLocation(cfg.Bucket); err != nil {
		var se oss.ServiceError
		if errors.As(err, &se) && se.StatusCode == 403 {
			slog.Warn("oss: skipping bucket location check", "bucket", cfg.Bucket, "error", err)
		} else {
			return nil, fmt.Errorf("verify bucket: %w", err)
		}
	} else {
		slog.Info("oss bucket ready", "bucket", cfg.Bucket, "location", loc)
	}

	return &OSSStore{
		bucket:     bucket,
		endpoint:   cfg.Endpoint,
		bucketName: cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *OSSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(key, r, opts...); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *OSSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	var se oss.ServiceError
	if errors.As(err, &se) && se.StatusCode == 404 {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	err = s.bucket.DeleteObject(key, oss.WithContext(ctx))
	var se oss.ServiceError
	if errors.As(err, &se) && se.StatusCode == 404 {
		return nil
	}
	return err
}

func (s *OSSStore) Exists(ctx context.Context, key string) (bool, error) {
	key, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	return s.bucket.IsObjectExist(key, oss.WithContext(ctx))
}

func (s *OSSStore) URL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	end := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, end, key)
}
