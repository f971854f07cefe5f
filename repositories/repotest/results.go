package repotest

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
)

type resultRepo struct{ s *Store }

func (r *resultRepo) Create(ctx context.Context, res *models.Result) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "results.Create"); err != nil {
		return err
	}
	t, _ := r.s.tournamentByID(res.TournamentID)
	pl, _ := r.s.profileByID(res.PlayerID)
	if t == nil || pl == nil {
		return repositories.ErrResultInvalidRef
	}
	res.ID = uuid.New()
	r.s.results = append(r.s.results, *res)
	return nil
}

// ListByTournament returns rows in insertion order sorted stably by rank, like
// an ORDER BY rank without a tie-break.
func (r *resultRepo) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Result, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "results.ListByTournament"); err != nil {
		return nil, err
	}
	out := make([]models.Result, 0)
	for _, res := range r.s.results {
		if res.TournamentID != tournamentID {
			continue
		}
		if pl, _ := r.s.profileByID(res.PlayerID); pl != nil {
			res.Player = &models.Profile{ID: pl.ID, Username: pl.Username, FullName: pl.FullName}
		}
		out = append(out, res)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (r *resultRepo) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Result, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "results.ListByPlayer"); err != nil {
		return nil, err
	}
	out := make([]models.Result, 0)
	for _, res := range r.s.results {
		if res.PlayerID != playerID {
			continue
		}
		if t, _ := r.s.tournamentByID(res.TournamentID); t != nil {
			res.Tournament = &models.Tournament{ID: t.ID, Title: t.Title}
		}
		out = append(out, res)
	}
	newestFirst(out, func(res models.Result) time.Time { return res.CreatedAt })
	return out, nil
}

func (r *resultRepo) CountByPlayer(ctx context.Context, playerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "results.CountByPlayer"); err != nil {
		return 0, err
	}
	var n int64
	for _, res := range r.s.results {
		if res.PlayerID == playerID {
			n++
		}
	}
	return n, nil
}
