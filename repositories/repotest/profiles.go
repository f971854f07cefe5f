package repotest

import (
	"context"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
)

type profileRepo struct{ s *Store }

func (r *profileRepo) Create(ctx context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "profiles.Create"); err != nil {
		return err
	}
	if cur, _ := r.s.profileByID(p.ID); cur != nil {
		return repositories.ErrProfileExists
	}
	if p.GameIDs == nil {
		p.GameIDs = []string{}
	}
	r.s.profiles = append(r.s.profiles, *p)
	r.s.accounts[p.ID] = struct{}{}
	return nil
}

func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "profiles.GetByID"); err != nil {
		return nil, err
	}
	p, _ := r.s.profileByID(id)
	if p == nil {
		return nil, repositories.ErrProfileNotFound
	}
	c := *p
	return &c, nil
}

func (r *profileRepo) ListAll(ctx context.Context) ([]models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "profiles.ListAll"); err != nil {
		return nil, err
	}
	out := append([]models.Profile(nil), r.s.profiles...)
	newestFirst(out, func(p models.Profile) time.Time { return p.CreatedAt })
	return out, nil
}

func (r *profileRepo) Update(ctx context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "profiles.Update"); err != nil {
		return err
	}
	cur, _ := r.s.profileByID(p.ID)
	if cur == nil {
		return repositories.ErrProfileNotFound
	}
	cur.Username, cur.FullName, cur.GameIDs, cur.UpdatedAt = p.Username, p.FullName, p.GameIDs, p.UpdatedAt
	*p = *cur
	return nil
}

func (r *profileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "profiles.Delete"); err != nil {
		return err
	}
	_, i := r.s.profileByID(id)
	if i < 0 {
		return repositories.ErrProfileNotFound
	}
	// удаляется строка auth_users, остальное по ON DELETE CASCADE
	delete(r.s.accounts, id)
	r.s.profiles = append(r.s.profiles[:i], r.s.profiles[i+1:]...)
	r.s.participants = filterOut(r.s.participants, func(p models.Participant) bool { return p.PlayerID == id })
	r.s.results = filterOut(r.s.results, func(res models.Result) bool { return res.PlayerID == id })
	r.s.news = filterOut(r.s.news, func(n models.News) bool { return n.AuthorID == id })
	r.s.tournaments = filterOut(r.s.tournaments, func(t models.Tournament) bool { return t.CreatedBy == id })
	return nil
}

func (r *profileRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "profiles.Count"); err != nil {
		return 0, err
	}
	return int64(len(r.s.profiles)), nil
}
