package repotest

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
)

type newsRepo struct{ s *Store }

func (r *newsRepo) Create(ctx context.Context, n *models.News) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.Create"); err != nil {
		return err
	}
	if p, _ := r.s.profileByID(n.AuthorID); p == nil {
		return repositories.ErrNewsInvalidAuthor
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if cur, _ := r.s.newsByID(n.ID); cur != nil {
		return fmt.Errorf("duplicate news id %s", n.ID)
	}
	r.s.news = append(r.s.news, *n)
	return nil
}

func (r *newsRepo) Update(ctx context.Context, n *models.News) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.Update"); err != nil {
		return err
	}
	cur, _ := r.s.newsByID(n.ID)
	if cur == nil {
		return repositories.ErrNewsNotFound
	}
	cur.Title, cur.Content, cur.Excerpt = n.Title, n.Content, n.Excerpt
	cur.Published, cur.Featured, cur.UpdatedAt = n.Published, n.Featured, n.UpdatedAt
	*n = *cur
	return nil
}

// withAuthor повторяет LEFT JOIN на profiles из postgres-реализации.
func (r *newsRepo) withAuthor(n models.News) models.News {
	if p, _ := r.s.profileByID(n.AuthorID); p != nil {
		n.Author = &models.Profile{ID: p.ID, Username: p.Username, FullName: p.FullName}
	}
	return n
}

func (r *newsRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.GetByID"); err != nil {
		return nil, err
	}
	n, _ := r.s.newsByID(id)
	if n == nil {
		return nil, repositories.ErrNewsNotFound
	}
	c := r.withAuthor(*n)
	return &c, nil
}

func (r *newsRepo) GetPublished(ctx context.Context, id uuid.UUID) (*models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.GetPublished"); err != nil {
		return nil, err
	}
	n, _ := r.s.newsByID(id)
	if n == nil || !n.Published {
		return nil, repositories.ErrNewsNotFound
	}
	c := r.withAuthor(*n)
	return &c, nil
}

func (r *newsRepo) sorted(keep func(models.News) bool) []models.News {
	out := make([]models.News, 0)
	for _, n := range r.s.news {
		if keep(n) {
			out = append(out, r.withAuthor(n))
		}
	}
	newestFirst(out, func(n models.News) time.Time { return n.CreatedAt })
	return out
}

func (r *newsRepo) ListPublished(ctx context.Context, from, to int) ([]models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.ListPublished"); err != nil {
		return nil, err
	}
	return window(r.sorted(func(n models.News) bool { return n.Published }), from, to), nil
}

func (r *newsRepo) ListFeatured(ctx context.Context, n int) ([]models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.ListFeatured"); err != nil {
		return nil, err
	}
	return limit(r.sorted(func(n models.News) bool { return n.Published && n.Featured }), n), nil
}

func (r *newsRepo) ListAll(ctx context.Context, filter repositories.ListNewsFilter) ([]models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.ListAll"); err != nil {
		return nil, err
	}
	out := r.sorted(func(n models.News) bool {
		return filter.Search == "" || containsFold(n.Title, filter.Search)
	})
	return limit(out, filter.Limit), nil
}

func (r *newsRepo) setFlag(ctx context.Context, op string, id uuid.UUID, apply func(*models.News)) (*models.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, op); err != nil {
		return nil, err
	}
	n, _ := r.s.newsByID(id)
	if n == nil {
		return nil, repositories.ErrNewsNotFound
	}
	apply(n)
	n.UpdatedAt = r.s.Now()
	c := *n
	return &c, nil
}

func (r *newsRepo) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.News, error) {
	return r.setFlag(ctx, "news.SetPublished", id, func(n *models.News) { n.Published = published })
}

func (r *newsRepo) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (*models.News, error) {
	return r.setFlag(ctx, "news.SetFeatured", id, func(n *models.News) { n.Featured = featured })
}

func (r *newsRepo) UpdateImageKey(ctx context.Context, id uuid.UUID, key *string) error {
	_, err := r.setFlag(ctx, "news.UpdateImageKey", id, func(n *models.News) { n.ImageKey = key })
	return err
}

func (r *newsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.Delete"); err != nil {
		return err
	}
	_, i := r.s.newsByID(id)
	if i < 0 {
		return repositories.ErrNewsNotFound
	}
	r.s.news = append(r.s.news[:i], r.s.news[i+1:]...)
	return nil
}

func (r *newsRepo) Count(ctx context.Context, filter repositories.CountNewsFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "news.Count"); err != nil {
		return 0, err
	}
	return int64(len(r.sorted(func(n models.News) bool { return !filter.PublishedOnly || n.Published }))), nil
}
