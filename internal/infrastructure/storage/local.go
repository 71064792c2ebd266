package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

// LocalStore хранит вложения на диске и отдаёт их по publicURL (для разработки).
type LocalStore struct {
	rootPath  string
	publicURL string
	fetcher   fetcher
}

// NewLocalStore создаёт файловое хранилище.
func NewLocalStore(rootPath, publicURL string, maxUploadMB int64, client *http.Client) (*LocalStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &LocalStore{
		rootPath:  rootPath,
		publicURL: strings.TrimRight(publicURL, "/"),
		fetcher:   newFetcher(client, maxUploadMB*1024*1024),
	}, nil
}

// Upload сохраняет файл и возвращает его публичный URL.
func (s *LocalStore) Upload(ctx context.Context, ref string, kind valueobject.MediaKind) (string, error) {
	b, err := s.fetcher.fetch(ctx, ref, kind)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.rootPath, kind.Folder())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: не удалось создать каталог: %w", err)
	}

	fileName := uuid.NewString() + "." + b.kind.Extension
	targetPath := filepath.Join(dir, fileName)
	tempPath := targetPath + ".tmp"

	if err := os.WriteFile(tempPath, b.data, 0o644); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return s.publicURL + "/" + path.Join(kind.Folder(), fileName), nil
}

// Owns - ссылка уже указывает на это хранилище.
func (s *LocalStore) Owns(ref string) bool {
	return s.publicURL != "" && strings.HasPrefix(ref, s.publicURL+"/")
}
