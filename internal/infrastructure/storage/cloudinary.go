package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

const cloudinaryHost = "https://res.cloudinary.com/"

// CloudinaryStore загружает вложения в Cloudinary. Cloudinary сам скачивает
// http(s) ссылки и принимает data URI, поэтому ссылка передаётся как есть.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore; folder - корневой каталог, по умолчанию "jobs".
func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("storage: CLOUDINARY_URL не задан")
	}
	client, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to initialize Cloudinary: %w", err)
	}
	if folder == "" {
		folder = "jobs"
	}
	return &CloudinaryStore{client: client, folder: folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, ref string, kind valueobject.MediaKind) (string, error) {
	res, err := s.client.Upload.Upload(ctx, ref, uploader.UploadParams{
		Folder:       s.folder + "/" + kind.Folder(),
		ResourceType: string(kind),
	})
	if err != nil {
		return "", fmt.Errorf("storage: cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("storage: cloudinary upload failed: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("storage: cloudinary returned empty url")
	}
	return res.SecureURL, nil
}

func (s *CloudinaryStore) Owns(ref string) bool {
	return strings.HasPrefix(ref, cloudinaryHost+s.client.Config.Cloud.CloudName+"/")
}
