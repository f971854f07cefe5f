package repotest

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
)

type tournamentRepo struct{ s *Store }

func (r *tournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.Create"); err != nil {
		return err
	}
	if p, _ := r.s.profileByID(t.CreatedBy); p == nil {
		return repositories.ErrTournamentInvalidOwner
	}
	t.ID = uuid.New()
	r.s.tournaments = append(r.s.tournaments, *t)
	return nil
}

func (r *tournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.Update"); err != nil {
		return err
	}
	cur, _ := r.s.tournamentByID(t.ID)
	if cur == nil {
		return repositories.ErrTournamentNotFound
	}
	createdBy, createdAt := cur.CreatedBy, cur.CreatedAt
	*cur = *t
	cur.CreatedBy, cur.CreatedAt = createdBy, createdAt
	*t = *cur
	return nil
}

func (r *tournamentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.GetByID"); err != nil {
		return nil, err
	}
	t, _ := r.s.tournamentByID(id)
	if t == nil {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

func (r *tournamentRepo) filtered(filter repositories.ListTournamentsFilter) []models.Tournament {
	out := make([]models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if filter.PublishedOnly && !t.Published {
			continue
		}
		if filter.GameType != "" && t.GameType != filter.GameType {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (r *tournamentRepo) ListByStartDate(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.ListByStartDate"); err != nil {
		return nil, err
	}
	out := r.filtered(filter)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return limit(out, filter.Limit), nil
}

func (r *tournamentRepo) ListNewest(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.ListNewest"); err != nil {
		return nil, err
	}
	out := r.filtered(filter)
	newestFirst(out, func(t models.Tournament) time.Time { return t.CreatedAt })
	return limit(out, filter.Limit), nil
}

func (r *tournamentRepo) ListUpcoming(ctx context.Context, now time.Time, n int) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.ListUpcoming"); err != nil {
		return nil, err
	}
	out := make([]models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if t.Published && t.Status == models.StatusUpcoming && !t.StartDate.Before(now) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return limit(out, n), nil
}

func (r *tournamentRepo) ListForStatusSync(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.ListForStatusSync"); err != nil {
		return nil, err
	}
	out := make([]models.Tournament, 0)
	for _, t := range r.s.tournaments {
		if t.Status != models.StatusFinished && !t.StartDate.After(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *tournamentRepo) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.SetPublished"); err != nil {
		return nil, err
	}
	t, _ := r.s.tournamentByID(id)
	if t == nil {
		return nil, repositories.ErrTournamentNotFound
	}
	t.Published = published
	t.UpdatedAt = r.s.Now()
	c := *t
	return &c, nil
}

func (r *tournamentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.UpdateStatus"); err != nil {
		return err
	}
	t, _ := r.s.tournamentByID(id)
	if t == nil || t.Status != from {
		return repositories.ErrTournamentStatusChanged
	}
	t.Status = to
	return nil
}

func (r *tournamentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.Delete"); err != nil {
		return err
	}
	_, i := r.s.tournamentByID(id)
	if i < 0 {
		return repositories.ErrTournamentNotFound
	}
	r.s.tournaments = append(r.s.tournaments[:i], r.s.tournaments[i+1:]...)
	r.s.participants = filterOut(r.s.participants, func(p models.Participant) bool { return p.TournamentID == id })
	r.s.results = filterOut(r.s.results, func(res models.Result) bool { return res.TournamentID == id })
	return nil
}

func (r *tournamentRepo) Count(ctx context.Context, filter repositories.CountTournamentsFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "tournaments.Count"); err != nil {
		return 0, err
	}
	var n int64
	for _, t := range r.s.tournaments {
		if len(filter.Statuses) == 0 || containsStatus(filter.Statuses, t.Status) {
			n++
		}
	}
	return n, nil
}

func containsStatus(list []models.TournamentStatus, s models.TournamentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func filterOut[T any](items []T, drop func(T) bool) []T {
	out := items[:0]
	for _, it := range items {
		if !drop(it) {
			out = append(out, it)
		}
	}
	return out
}
