package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

const defaultMaxUploadBytes = 50 * 1024 * 1024

// blob - содержимое вложения и его определённый тип.
type blob struct {
	data []byte
	kind types.Type
}

// fetcher читает сырую ссылку на вложение: data: URI или http(s) URL.
type fetcher struct {
	client   *http.Client
	maxBytes int64
}

func newFetcher(client *http.Client, maxBytes int64) fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return fetcher{client: client, maxBytes: maxBytes}
}

func (f fetcher) fetch(ctx context.Context, ref string, want valueobject.MediaKind) (*blob, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, err = decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = f.download(ctx, ref)
	default:
		err = fmt.Errorf("storage: неподдерживаемая ссылка на вложение")
	}
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("storage: размер файла превышает лимит %d байт", f.maxBytes)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("storage: не удалось определить тип файла")
	}
	if kind.MIME.Type != string(want) {
		return nil, fmt.Errorf("storage: ожидался %s, получен %s", want, kind.MIME.Value)
	}
	return &blob{data: data, kind: kind}, nil
}

func (f fetcher) download(ctx context.Context, ref string) ([]byte, error) {
	if _, err := url.ParseRequestURI(ref); err != nil {
		return nil, fmt.Errorf("storage: некорректный URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось скачать файл: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage: не удалось скачать файл: status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, f.maxBytes+1)); err != nil {
		return nil, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeDataURI разбирает data:[<mime>][;base64],<payload>.
func decodeDataURI(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("storage: некорректный data URI")
	}
	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("storage: некорректный base64 в data URI: %w", err)
		}
		return data, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("storage: некорректный data URI: %w", err)
	}
	return []byte(decoded), nil
}
