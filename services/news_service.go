package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/Dosada05/esports-hub/storage"
	"github.com/google/uuid"
)

type NewsInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Excerpt   string `json:"excerpt"`
	Published bool   `json:"published"`
	Featured  bool   `json:"featured"`
}

// ImageUpload: обложка из multipart-формы.
type ImageUpload struct {
	ContentType string
	Body        io.ReadSeeker
	Size        int64
}

type NewsService interface {
	ListPublished(ctx context.Context, from, to int) ([]models.News, error)
	Featured(ctx context.Context, limit int) ([]models.News, error)
	GetPublished(ctx context.Context, id uuid.UUID) (*models.News, error)

	ListForAdmin(ctx context.Context, actor *models.Session, search string) ([]models.News, error)
	GetForEdit(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.News, error)
	// Save создаёт статью, если id == nil, иначе обновляет существующую.
	Save(ctx context.Context, actor *models.Session, id *uuid.UUID, input NewsInput, image *ImageUpload) (*models.News, bool, error)
	TogglePublished(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.News, error)
	ToggleFeatured(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.News, error)
	Delete(ctx context.Context, actor *models.Session, id uuid.UUID) error
}

type newsService struct {
	newsRepo  repositories.NewsRepository
	uploader  storage.FileUploader
	guard     *pages.Guard
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewNewsService: uploader может быть nil, тогда загрузка обложек отключена.
func NewNewsService(
	newsRepo repositories.NewsRepository,
	uploader storage.FileUploader,
	guard *pages.Guard,
	publisher Publisher,
	logger *slog.Logger,
) NewsService {
	return &newsService{
		newsRepo:  newsRepo,
		uploader:  uploader,
		guard:     guard,
		publisher: publisherOrNoop(publisher),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *newsService) withImageURL(n *models.News) {
	if n == nil || s.uploader == nil || n.ImageKey == nil || *n.ImageKey == "" {
		return
	}
	u := s.uploader.GetPublicURL(*n.ImageKey)
	n.ImageURL = &u
}

func (s *newsService) withImageURLs(items []models.News) []models.News {
	for i := range items {
		s.withImageURL(&items[i])
	}
	return items
}

func (s *newsService) ListPublished(ctx context.Context, from, to int) ([]models.News, error) {
	items, err := s.newsRepo.ListPublished(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list published news: %w", err)
	}
	return s.withImageURLs(items), nil
}

func (s *newsService) Featured(ctx context.Context, limit int) ([]models.News, error) {
	items, err := s.newsRepo.ListFeatured(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured news: %w", err)
	}
	return s.withImageURLs(items), nil
}

func (s *newsService) GetPublished(ctx context.Context, id uuid.UUID) (*models.News, error) {
	n, err := s.newsRepo.GetPublished(ctx, id)
	if err != nil {
		return nil, mapNewsError(err)
	}
	s.withImageURL(n)
	return n, nil
}

func (s *newsService) ListForAdmin(ctx context.Context, actor *models.Session, search string) ([]models.News, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.newsRepo.ListAll(ctx, repositories.ListNewsFilter{Search: search})
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	return s.withImageURLs(items), nil
}

func (s *newsService) GetForEdit(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.News, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	n, err := s.newsRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNewsError(err)
	}
	s.withImageURL(n)
	return n, nil
}

func (s *newsService) Save(ctx context.Context, actor *models.Session, id *uuid.UUID, input NewsInput, image *ImageUpload) (*models.News, bool, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, false, err
	}
	if err := required(field("title", input.Title), field("content", input.Content)); err != nil {
		return nil, false, err
	}

	var ext string
	if image != nil {
		if s.uploader == nil {
			return nil, false, ErrUploadsDisabled
		}
		var ok bool
		if ext, ok = storage.ImageExtension(image.ContentType); !ok {
			return nil, false, ErrUnsupportedImageType
		}
	}

	release, err := s.guard.Acquire(pages.Key("news-form", actor.UserID.String()))
	if err != nil {
		return nil, false, err
	}
	defer release()

	now := s.now()
	n := &models.News{
		Title:     input.Title,
		Content:   input.Content,
		Excerpt:   optionalString(input.Excerpt),
		Published: input.Published,
		Featured:  input.Featured,
		UpdatedAt: now,
	}

	var prev *models.News
	created := id == nil
	if created {
		// id выдаётся до вставки: ключ обложки строится из него, а строка
		// появляется только после успешной загрузки.
		n.ID = uuid.New()
		n.AuthorID = actor.UserID
		n.CreatedAt = now
	} else {
		if prev, err = s.newsRepo.GetByID(ctx, *id); err != nil {
			return nil, false, mapNewsError(err)
		}
		n.ID = *id
	}

	var uploaded string
	if image != nil {
		uploaded = storage.NewsCoverKey(n.ID, n.Title, ext)
		if _, err := s.uploader.Upload(ctx, uploaded, image.ContentType, image.Body, image.Size); err != nil {
			return nil, false, fmt.Errorf("failed to upload news image: %w", err)
		}
		n.ImageKey = &uploaded
	}

	if err := s.store(ctx, n, created, uploaded); err != nil {
		if uploaded != "" {
			s.deleteImage(ctx, uploaded, "failed to delete orphaned news image")
		}
		return nil, false, mapNewsError(err)
	}
	if uploaded != "" && prev != nil && prev.ImageKey != nil && *prev.ImageKey != uploaded {
		s.deleteImage(ctx, *prev.ImageKey, "failed to delete previous news image")
	}

	s.withImageURL(n)
	event := EventUpdated
	if created {
		event = EventCreated
	}
	publishVisible(s.publisher, RoomNews, event, n.ID, prev != nil && prev.Published, n.Published)
	return n, created, nil
}

// store записывает статью; новая вставляется сразу с ключом обложки.
func (s *newsService) store(ctx context.Context, n *models.News, created bool, imageKey string) error {
	if created {
		return s.newsRepo.Create(ctx, n)
	}
	if err := s.newsRepo.Update(ctx, n); err != nil {
		return err
	}
	if imageKey == "" {
		return nil
	}
	if err := s.newsRepo.UpdateImageKey(ctx, n.ID, &imageKey); err != nil {
		return err
	}
	n.ImageKey = &imageKey
	return nil
}

// deleteImage убирает объект из бакета; ошибка только логируется.
func (s *newsService) deleteImage(ctx context.Context, key, msg string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Warn(msg, slog.String("key", key), slog.Any("error", err))
	}
}

func (s *newsService) TogglePublished(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.News, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cur, err := s.newsRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNewsError(err)
	}
	n, err := s.newsRepo.SetPublished(ctx, id, !cur.Published)
	if err != nil {
		return nil, mapNewsError(err)
	}
	s.withImageURL(n)
	publishVisible(s.publisher, RoomNews, EventUpdated, n.ID, cur.Published, n.Published)
	return n, nil
}

func (s *newsService) ToggleFeatured(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.News, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cur, err := s.newsRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNewsError(err)
	}
	n, err := s.newsRepo.SetFeatured(ctx, id, !cur.Featured)
	if err != nil {
		return nil, mapNewsError(err)
	}
	s.withImageURL(n)
	publishVisible(s.publisher, RoomNews, EventUpdated, n.ID, cur.Published, n.Published)
	return n, nil
}

func (s *newsService) Delete(ctx context.Context, actor *models.Session, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	cur, err := s.newsRepo.GetByID(ctx, id)
	if err != nil {
		return mapNewsError(err)
	}
	if err := s.newsRepo.Delete(ctx, id); err != nil {
		return mapNewsError(err)
	}
	if s.uploader != nil && cur.ImageKey != nil && *cur.ImageKey != "" {
		s.deleteImage(ctx, *cur.ImageKey, "failed to delete news image")
	}
	publishVisible(s.publisher, RoomNews, EventDeleted, id, cur.Published, cur.Published)
	return nil
}

func mapNewsError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNewsNotFound):
		return ErrNewsNotFound
	case errors.Is(err, repositories.ErrNewsInvalidAuthor):
		return ErrProfileNotFound
	default:
		return fmt.Errorf("news operation failed: %w", err)
	}
}
