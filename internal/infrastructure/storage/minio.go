package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

type MinioConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
	PublicURL   string
	MaxUploadMB int64
}

// MinioStore загружает вложения в S3-совместимое хранилище.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	fetcher   fetcher
}

func NewMinioStore(cfg MinioConfig, httpClient *http.Client) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: MinIO не настроен")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create MinIO client: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		fetcher:   newFetcher(httpClient, cfg.MaxUploadMB*1024*1024),
	}, nil
}

// EnsureBucket создаёт бакет, если его нет.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage: failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("storage: failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinioStore) Upload(ctx context.Context, ref string, kind valueobject.MediaKind) (string, error) {
	b, err := s.fetcher.fetch(ctx, ref, kind)
	if err != nil {
		return "", err
	}

	key := objectKey(kind, b.kind.Extension)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(b.data), int64(len(b.data)), minio.PutObjectOptions{
		ContentType: b.kind.MIME.Value,
	})
	if err != nil {
		return "", fmt.Errorf("storage: failed to upload file %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *MinioStore) Owns(ref string) bool {
	return strings.HasPrefix(ref, s.objectURL(""))
}

func (s *MinioStore) objectURL(key string) string {
	return s.publicURL + "/" + s.bucket + "/" + key
}

func objectKey(kind valueobject.MediaKind, ext string) string {
	return path.Join("reports", kind.Folder(), uuid.NewString()+"."+ext)
}
