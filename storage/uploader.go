package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader: объектное хранилище для обложек новостей.
type FileUploader interface {
	// Upload кладёт объект целиком; size > 0 уходит в Content-Length, body
	// должен уметь перематываться для подписи запроса и повторов.
	Upload(ctx context.Context, key string, contentType string, body io.ReadSeeker, size int64) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageExtension возвращает расширение для разрешённого content-type.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := allowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// NewsCoverKey строит ключ вида news/<id>/<slug>-<suffix><ext>. Суффикс
// меняет ключ при каждой загрузке, чтобы CDN не отдавал старую картинку.
func NewsCoverKey(newsID uuid.UUID, title, ext string) string {
	name := slug.Make(title)
	if name == "" {
		name = "cover"
	}
	if len(name) > 60 {
		name = strings.TrimRight(name[:60], "-")
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join("news", newsID.String(), fmt.Sprintf("%s-%s%s", name, suffix, ext))
}
