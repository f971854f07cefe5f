package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
)

type ResultInput struct {
	TournamentID uuid.UUID `json:"tournament_id"`
	PlayerID     uuid.UUID `json:"player_id"`
	// Rank: nil, если место не указано; ноль и отрицательные отклоняются.
	Rank         *int      `json:"rank"`
	Points       int       `json:"points"`
}

type LeaderboardService interface {
	// Tournaments: список для выбора турнира, новые первыми.
	Tournaments(ctx context.Context, actor *models.Session) ([]models.Tournament, error)
	// Results: таблица турнира по возрастанию места.
	Results(ctx context.Context, actor *models.Session, tournamentID uuid.UUID) ([]models.Result, error)
	Record(ctx context.Context, actor *models.Session, input ResultInput) (*models.Result, error)
	MyResults(ctx context.Context, actor *models.Session) ([]models.Result, error)
}

type leaderboardService struct {
	tournamentRepo repositories.TournamentRepository
	resultRepo     repositories.ResultRepository
	guard          *pages.Guard
	now            func() time.Time
}

func NewLeaderboardService(
	tournamentRepo repositories.TournamentRepository,
	resultRepo repositories.ResultRepository,
	guard *pages.Guard,
) LeaderboardService {
	return &leaderboardService{
		tournamentRepo: tournamentRepo,
		resultRepo:     resultRepo,
		guard:          guard,
		now:            time.Now,
	}
}

func (s *leaderboardService) Tournaments(ctx context.Context, actor *models.Session) ([]models.Tournament, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.tournamentRepo.ListNewest(ctx, repositories.ListTournamentsFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return items, nil
}

func (s *leaderboardService) Results(ctx context.Context, actor *models.Session, tournamentID uuid.UUID) ([]models.Result, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.resultRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	SortByRank(items)
	return items, nil
}

// SortByRank упорядочивает по месту; при равенстве сохраняется порядок выборки.
// Место берётся как есть и по очкам не пересчитывается.
func SortByRank(items []models.Result) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Rank < items[j].Rank
	})
}

func (s *leaderboardService) Record(ctx context.Context, actor *models.Session, input ResultInput) (*models.Result, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var missing []string
	if input.TournamentID == uuid.Nil {
		missing = append(missing, "tournament")
	}
	if input.PlayerID == uuid.Nil {
		missing = append(missing, "player")
	}
	if input.Rank == nil {
		missing = append(missing, "rank")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}
	if *input.Rank <= 0 {
		return nil, ErrInvalidRank
	}

	// повторная отправка той же формы, пока первая ещё пишется, отклоняется
	release, err := s.guard.Acquire(pages.Key("result-form", actor.UserID.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	r := &models.Result{
		TournamentID: input.TournamentID,
		PlayerID:     input.PlayerID,
		Rank:         *input.Rank,
		Points:       input.Points,
		CreatedAt:    s.now(),
	}
	if err := s.resultRepo.Create(ctx, r); err != nil {
		if errors.Is(err, repositories.ErrResultInvalidRef) {
			return nil, ErrInvalidReference
		}
		return nil, fmt.Errorf("failed to record result: %w", err)
	}
	return r, nil
}

func (s *leaderboardService) MyResults(ctx context.Context, actor *models.Session) ([]models.Result, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	items, err := s.resultRepo.ListByPlayer(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return items, nil
}
