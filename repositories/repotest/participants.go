package repotest

import (
	"context"
	"sort"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
)

type participantRepo struct{ s *Store }

func (r *participantRepo) Create(ctx context.Context, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "participants.Create"); err != nil {
		return err
	}
	t, _ := r.s.tournamentByID(p.TournamentID)
	pl, _ := r.s.profileByID(p.PlayerID)
	if t == nil || pl == nil {
		return repositories.ErrParticipantInvalidRef
	}
	for _, existing := range r.s.participants {
		if existing.TournamentID == p.TournamentID && existing.PlayerID == p.PlayerID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = uuid.New()
	p.RegisteredAt = r.s.Now()
	r.s.participants = append(r.s.participants, *p)
	return nil
}

func (r *participantRepo) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "participants.ListByPlayer"); err != nil {
		return nil, err
	}
	out := make([]models.Participant, 0)
	for _, p := range r.s.participants {
		if p.PlayerID != playerID {
			continue
		}
		if t, _ := r.s.tournamentByID(p.TournamentID); t != nil {
			c := *t
			p.Tournament = &c
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

func (r *participantRepo) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "participants.ListByTournament"); err != nil {
		return nil, err
	}
	out := make([]models.Participant, 0)
	for _, p := range r.s.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if pl, _ := r.s.profileByID(p.PlayerID); pl != nil {
			p.Player = &models.Profile{ID: pl.ID, Username: pl.Username, FullName: pl.FullName}
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (r *participantRepo) CountByTournament(ctx context.Context, tournamentID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "participants.CountByTournament"); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range r.s.participants {
		if p.TournamentID == tournamentID {
			n++
		}
	}
	return n, nil
}

func (r *participantRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "participants.Count"); err != nil {
		return 0, err
	}
	return int64(len(r.s.participants)), nil
}
