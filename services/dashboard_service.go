package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"golang.org/x/sync/errgroup"
)

const recentNewsWindow = 3

type DashboardService interface {
	PlayerStats(ctx context.Context, actor *models.Session) (models.PlayerStats, error)
}

type dashboardService struct {
	participantRepo repositories.ParticipantRepository
	resultRepo      repositories.ResultRepository
	newsRepo        repositories.NewsRepository
	now             func() time.Time
}

func NewDashboardService(
	participantRepo repositories.ParticipantRepository,
	resultRepo repositories.ResultRepository,
	newsRepo repositories.NewsRepository,
) DashboardService {
	return &dashboardService{
		participantRepo: participantRepo,
		resultRepo:      resultRepo,
		newsRepo:        newsRepo,
		now:             time.Now,
	}
}

// PlayerStats: "upcoming": турниры игрока, которые ещё не начались по датам.
// RecentNews: сколько статей попало в блок последних новостей (не больше трёх).
func (s *dashboardService) PlayerStats(ctx context.Context, actor *models.Session) (models.PlayerStats, error) {
	if err := requireSession(actor); err != nil {
		return models.PlayerStats{}, err
	}

	var (
		joined  []models.Participant
		results int64
		recent  []models.News
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		joined, err = s.participantRepo.ListByPlayer(gctx, actor.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		results, err = s.resultRepo.CountByPlayer(gctx, actor.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.newsRepo.ListPublished(gctx, 0, recentNewsWindow-1)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.PlayerStats{}, fmt.Errorf("failed to load player stats: %w", err)
	}

	now := s.now()
	upcoming := 0
	for _, p := range joined {
		if p.Tournament != nil && p.Tournament.EffectiveStatus(now) == models.StatusUpcoming {
			upcoming++
		}
	}

	return models.PlayerStats{
		JoinedTournaments:   len(joined),
		UpcomingTournaments: upcoming,
		TotalResults:        int(results),
		RecentNews:          len(recent),
	}, nil
}
