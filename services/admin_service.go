package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	activityPerKind = 5
	activityLimit   = 8
)

type AdminService interface {
	Stats(ctx context.Context, actor *models.Session) (models.AdminStats, error)
	RecentActivity(ctx context.Context, actor *models.Session) ([]models.ActivityItem, error)
}

type adminService struct {
	profileRepo     repositories.ProfileRepository
	newsRepo        repositories.NewsRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
}

func NewAdminService(
	profileRepo repositories.ProfileRepository,
	newsRepo repositories.NewsRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
) AdminService {
	return &adminService{
		profileRepo:     profileRepo,
		newsRepo:        newsRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
	}
}

// Stats считает шесть счётчиков параллельно. Активные турниры считаются по
// сохранённому статусу, его подтягивает фоновая сверка.
func (s *adminService) Stats(ctx context.Context, actor *models.Session) (models.AdminStats, error) {
	if err := requireAdmin(actor); err != nil {
		return models.AdminStats{}, err
	}

	var st models.AdminStats
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			*dst = n
			return err
		})
	}
	count(&st.Players, s.profileRepo.Count)
	count(&st.News, func(ctx context.Context) (int64, error) {
		return s.newsRepo.Count(ctx, repositories.CountNewsFilter{})
	})
	count(&st.PublishedNews, func(ctx context.Context) (int64, error) {
		return s.newsRepo.Count(ctx, repositories.CountNewsFilter{PublishedOnly: true})
	})
	count(&st.Tournaments, func(ctx context.Context) (int64, error) {
		return s.tournamentRepo.Count(ctx, repositories.CountTournamentsFilter{})
	})
	count(&st.ActiveTournaments, func(ctx context.Context) (int64, error) {
		return s.tournamentRepo.Count(ctx, repositories.CountTournamentsFilter{
			Statuses: []models.TournamentStatus{models.StatusUpcoming, models.StatusOngoing},
		})
	})
	count(&st.Registrations, s.participantRepo.Count)

	if err := g.Wait(); err != nil {
		return models.AdminStats{}, fmt.Errorf("failed to load admin stats: %w", err)
	}
	return st, nil
}

func (s *adminService) RecentActivity(ctx context.Context, actor *models.Session) ([]models.ActivityItem, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var (
		news        []models.News
		tournaments []models.Tournament
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		news, err = s.newsRepo.ListAll(gctx, repositories.ListNewsFilter{Limit: activityPerKind})
		return err
	})
	g.Go(func() error {
		var err error
		tournaments, err = s.tournamentRepo.ListNewest(gctx, repositories.ListTournamentsFilter{Limit: activityPerKind})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}

	items := make([]models.ActivityItem, 0, len(news)+len(tournaments))
	for _, n := range news {
		detail := "Draft"
		if n.Published {
			detail = "Published"
		}
		items = append(items, models.ActivityItem{
			Kind: models.ActivityNews, ID: n.ID, Title: n.Title, Detail: detail, CreatedAt: n.CreatedAt,
		})
	}
	for _, t := range tournaments {
		items = append(items, models.ActivityItem{
			Kind: models.ActivityTournament, ID: t.ID, Title: t.Title, Detail: t.GameType, CreatedAt: t.CreatedAt,
		})
	}
	return MergeActivity(items, activityLimit), nil
}

// MergeActivity убирает дубликаты (kind+id), сортирует по убыванию даты и
// обрезает до limit.
func MergeActivity(items []models.ActivityItem, limit int) []models.ActivityItem {
	type key struct {
		kind models.ActivityKind
		id   string
	}
	seen := make(map[key]struct{}, len(items))
	out := make([]models.ActivityItem, 0, len(items))
	for _, it := range items {
		k := key{it.Kind, it.ID.String()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
