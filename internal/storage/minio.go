package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"realestate/internal/config"
)

const (
	imagePrefix   = "listings/"
	presignExpiry = time.Hour
)

// MinIOStore 将房源图片保存在 MinIO/S3 Bucket 中。
type MinIOStore struct {
	internalClient *minio.Client
	publicClient   *minio.Client
	bucketName     string
}

// NewMinIOStore 连接 MinIO 并确保 Bucket 存在。
func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	bucketLookup := minio.BucketLookupAuto
	switch strings.ToLower(strings.TrimSpace(cfg.BucketLookup)) {
	case "", "auto":
		bucketLookup = minio.BucketLookupAuto
	case "dns":
		bucketLookup = minio.BucketLookupDNS
	case "path":
		bucketLookup = minio.BucketLookupPath
	default:
		return nil, fmt.Errorf("invalid minio bucket lookup %q", cfg.BucketLookup)
	}

	creds := credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	internalClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        creds,
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: bucketLookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init internal minio client: %w", err)
	}

	publicClient := internalClient
	if cfg.PublicEndpoint != "" {
		parsed, err := url.Parse(cfg.PublicEndpoint)
		if err != nil {
			return nil, fmt.Errorf("parse minio public endpoint: %w", err)
		}
		if parsed.Host == "" {
			return nil, fmt.Errorf("invalid minio public endpoint, host missing")
		}
		publicClient, err = minio.New(parsed.Host, &minio.Options{
			Creds:        creds,
			Secure:       parsed.Scheme == "https",
			Region:       cfg.Region,
			BucketLookup: bucketLookup,
		})
		if err != nil {
			return nil, fmt.Errorf("init public minio client: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := internalClient.BucketExists(ctx, cfg.Bucket)
	if err != nil && !IsNoSuchBucket(err) {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := internalClient.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinIOStore{
		internalClient: internalClient,
		publicClient:   publicClient,
		bucketName:     cfg.Bucket,
	}, nil
}

// Store 将图片上传到 listings/<name>。
func (s *MinIOStore) Store(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.internalClient.PutObject(ctx, s.bucketName, imagePrefix+name, r, size, opts); err != nil {
		return fmt.Errorf("put object %q: %w", name, err)
	}
	return nil
}

// Remove 删除图片，对象不存在视为已删除。
func (s *MinIOStore) Remove(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if err := s.internalClient.RemoveObject(ctx, s.bucketName, imagePrefix+name, minio.RemoveObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", name, err)
	}
	return nil
}

// URL 返回针对公开端点签名的限时下载链接。
func (s *MinIOStore) URL(ctx context.Context, name string) (string, error) {
	u, err := s.publicClient.PresignedGetObject(ctx, s.bucketName, imagePrefix+name, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", name, err)
	}
	return u.String(), nil
}

// List 返回全部已存图片，Key 为去掉前缀后的图片名。
func (s *MinIOStore) List(ctx context.Context) ([]ObjectMeta, error) {
	objCh := s.internalClient.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    imagePrefix,
		Recursive: true,
	})
	result := make([]ObjectMeta, 0, 64)
	for object := range objCh {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects under %q: %w", imagePrefix, object.Err)
		}
		result = append(result, ObjectMeta{
			Key:          strings.TrimPrefix(object.Key, imagePrefix),
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return result, nil
}
