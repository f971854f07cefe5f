package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/google/uuid"
)

var (
	ErrNewsNotFound      = errors.New("news not found")
	ErrNewsInvalidAuthor = errors.New("invalid author reference")
)

var newsColumns = []string{
	"id", "title", "content", "excerpt", "image_key", "author_id",
	"published", "featured", "created_at", "updated_at",
}

type ListNewsFilter struct {
	// Search: подстрока заголовка без учёта регистра.
	Search string
	Limit  int
}

type CountNewsFilter struct {
	PublishedOnly bool
}

type NewsRepository interface {
	Create(ctx context.Context, news *models.News) error
	Update(ctx context.Context, news *models.News) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.News, error)
	GetPublished(ctx context.Context, id uuid.UUID) (*models.News, error)
	ListPublished(ctx context.Context, from, to int) ([]models.News, error)
	ListFeatured(ctx context.Context, limit int) ([]models.News, error)
	ListAll(ctx context.Context, filter ListNewsFilter) ([]models.News, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.News, error)
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*models.News, error)
	UpdateImageKey(ctx context.Context, id uuid.UUID, imageKey *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter CountNewsFilter) (int64, error)
}

type postgresNewsRepository struct {
	gw *gateway.Client
}

func NewPostgresNewsRepository(gw *gateway.Client) NewsRepository {
	return &postgresNewsRepository{gw: gw}
}

func scanNews(row gateway.Row) (models.News, error) {
	return scanNewsRow(row)
}

// scanNewsWithAuthor читает строку selectNews: колонки news и затем автора.
func scanNewsWithAuthor(row gateway.Row) (models.News, error) {
	var username, fullName sql.NullString
	n, err := scanNewsRow(row, &username, &fullName)
	n.Author = embeddedProfile(n.AuthorID, username, fullName)
	return n, err
}

func scanNewsRow(row gateway.Row, extra ...any) (models.News, error) {
	var (
		n        models.News
		excerpt  sql.NullString
		imageKey sql.NullString
	)
	dest := append([]any{
		&n.ID, &n.Title, &n.Content, &excerpt, &imageKey, &n.AuthorID,
		&n.Published, &n.Featured, &n.CreatedAt, &n.UpdatedAt,
	}, extra...)
	err := row.Scan(dest...)
	n.Excerpt = nullStringPtr(excerpt)
	n.ImageKey = nullStringPtr(imageKey)
	return n, err
}

// selectNews: чтение статей вместе с автором для подписи.
func (r *postgresNewsRepository) selectNews() *gateway.Query {
	return r.gw.From("news").
		Select(newsColumns...).
		Embed("author", "profiles", "author_id", "username", "full_name")
}

func (r *postgresNewsRepository) handleNewsError(err error) error {
	if err == nil {
		return nil
	}
	if gateway.IsForeignKeyViolation(err) {
		return ErrNewsInvalidAuthor
	}
	return mapNoRows(err, ErrNewsNotFound)
}

func (r *postgresNewsRepository) Create(ctx context.Context, n *models.News) error {
	values := gateway.Values{
		"title":      n.Title,
		"content":    n.Content,
		"excerpt":    emptyToNil(n.Excerpt),
		"image_key":  n.ImageKey,
		"author_id":  n.AuthorID,
		"published":  n.Published,
		"featured":   n.Featured,
		"created_at": n.CreatedAt,
		"updated_at": n.UpdatedAt,
	}
	// id может быть выдан заранее, например под ключ обложки
	if n.ID != uuid.Nil {
		values["id"] = n.ID
	}
	m := r.gw.Insert("news", values).Returning(newsColumns...)

	created, err := gateway.ApplySingle(ctx, m, scanNews)
	if err != nil {
		return r.handleNewsError(err)
	}
	*n = created
	return nil
}

// Update переписывает редактируемые поля; автор и created_at не меняются.
func (r *postgresNewsRepository) Update(ctx context.Context, n *models.News) error {
	m := r.gw.Update("news", gateway.Values{
		"title":      n.Title,
		"content":    n.Content,
		"excerpt":    emptyToNil(n.Excerpt),
		"published":  n.Published,
		"featured":   n.Featured,
		"updated_at": n.UpdatedAt,
	}).Eq("id", n.ID).Returning(newsColumns...)

	updated, err := gateway.ApplySingle(ctx, m, scanNews)
	if err != nil {
		return r.handleNewsError(err)
	}
	*n = updated
	return nil
}

func (r *postgresNewsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.News, error) {
	q := r.selectNews().Eq("id", id)
	n, err := gateway.Single(ctx, q, scanNewsWithAuthor)
	if err != nil {
		return nil, mapNoRows(err, ErrNewsNotFound)
	}
	return &n, nil
}

func (r *postgresNewsRepository) GetPublished(ctx context.Context, id uuid.UUID) (*models.News, error) {
	q := r.selectNews().Eq("id", id).Eq("published", true)
	n, err := gateway.Single(ctx, q, scanNewsWithAuthor)
	if err != nil {
		return nil, mapNoRows(err, ErrNewsNotFound)
	}
	return &n, nil
}

func (r *postgresNewsRepository) ListPublished(ctx context.Context, from, to int) ([]models.News, error) {
	q := r.selectNews().
		Eq("published", true).
		Order("created_at", false).
		Order("id", false).
		Range(from, to)
	return gateway.Select(ctx, q, scanNewsWithAuthor)
}

func (r *postgresNewsRepository) ListFeatured(ctx context.Context, limit int) ([]models.News, error) {
	q := r.selectNews().
		Eq("published", true).
		Eq("featured", true).
		Order("created_at", false).
		Limit(limit)
	return gateway.Select(ctx, q, scanNewsWithAuthor)
}

func (r *postgresNewsRepository) ListAll(ctx context.Context, filter ListNewsFilter) ([]models.News, error) {
	q := r.selectNews()
	if filter.Search != "" {
		q = q.ILike("title", gateway.ContainsPattern(filter.Search))
	}
	q = q.Order("created_at", false)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return gateway.Select(ctx, q, scanNewsWithAuthor)
}

func (r *postgresNewsRepository) setFlag(ctx context.Context, id uuid.UUID, column string, value bool) (*models.News, error) {
	m := r.gw.Update("news", gateway.Values{
		column:       value,
		"updated_at": time.Now().UTC(),
	}).Eq("id", id).Returning(newsColumns...)

	n, err := gateway.ApplySingle(ctx, m, scanNews)
	if err != nil {
		return nil, mapNoRows(err, ErrNewsNotFound)
	}
	return &n, nil
}

func (r *postgresNewsRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.News, error) {
	return r.setFlag(ctx, id, "published", published)
}

func (r *postgresNewsRepository) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*models.News, error) {
	return r.setFlag(ctx, id, "featured", featured)
}

func (r *postgresNewsRepository) UpdateImageKey(ctx context.Context, id uuid.UUID, imageKey *string) error {
	n, err := r.gw.Update("news", gateway.Values{"image_key": imageKey}).Eq("id", id).Exec(ctx)
	return checkAffectedRows(n, err, ErrNewsNotFound)
}

func (r *postgresNewsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.gw.Delete("news").Eq("id", id).Exec(ctx)
	return checkAffectedRows(n, err, ErrNewsNotFound)
}

func (r *postgresNewsRepository) Count(ctx context.Context, filter CountNewsFilter) (int64, error) {
	q := r.gw.From("news")
	if filter.PublishedOnly {
		q = q.Eq("published", true)
	}
	return q.Count(ctx, gateway.CountEstimated)
}
