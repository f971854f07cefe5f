package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
)

type ProfileInput struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	// GameIDs: через запятую, как в форме.
	GameIDs string `json:"game_ids"`
}

type ProfileService interface {
	GetOwn(ctx context.Context, actor *models.Session) (*models.Profile, error)
	UpdateOwn(ctx context.Context, actor *models.Session, input ProfileInput) (*models.Profile, error)

	ListPlayers(ctx context.Context, actor *models.Session, search string) ([]models.Profile, error)
	PlayerHistory(ctx context.Context, actor *models.Session, playerID uuid.UUID) ([]models.Participant, error)
	DeletePlayer(ctx context.Context, actor *models.Session, playerID uuid.UUID) error
}

type profileService struct {
	profileRepo     repositories.ProfileRepository
	participantRepo repositories.ParticipantRepository
	guard           *pages.Guard
	logger          *slog.Logger
	now             func() time.Time
}

func NewProfileService(
	profileRepo repositories.ProfileRepository,
	participantRepo repositories.ParticipantRepository,
	guard *pages.Guard,
	logger *slog.Logger,
) ProfileService {
	return &profileService{
		profileRepo:     profileRepo,
		participantRepo: participantRepo,
		guard:           guard,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *profileService) GetOwn(ctx context.Context, actor *models.Session) (*models.Profile, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	p, err := s.profileRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// UpdateOwn обновляет профиль; если профиль так и не был создан при
// регистрации, создаёт его.
func (s *profileService) UpdateOwn(ctx context.Context, actor *models.Session, input ProfileInput) (*models.Profile, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if err := required(field("username", input.Username)); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(pages.Key("profile-form", actor.UserID.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	p := &models.Profile{
		ID:        actor.UserID,
		Username:  strings.TrimSpace(input.Username),
		FullName:  optionalString(input.FullName),
		Role:      models.RolePlayer,
		GameIDs:   SplitGameIDs(input.GameIDs),
		UpdatedAt: now,
	}

	err = s.profileRepo.Update(ctx, p)
	if errors.Is(err, repositories.ErrProfileNotFound) {
		p.CreatedAt = now
		err = s.profileRepo.Create(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return p, nil
}

func (s *profileService) ListPlayers(ctx context.Context, actor *models.Session, search string) ([]models.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.profileRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return FilterPlayers(items, search), nil
}

// FilterPlayers: поиск без учёта регистра по username или полному имени.
func FilterPlayers(items []models.Profile, search string) []models.Profile {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return items
	}
	out := make([]models.Profile, 0, len(items))
	for _, p := range items {
		if strings.Contains(strings.ToLower(p.Username), q) ||
			(p.FullName != nil && strings.Contains(strings.ToLower(*p.FullName), q)) {
			out = append(out, p)
		}
	}
	return out
}

func (s *profileService) PlayerHistory(ctx context.Context, actor *models.Session, playerID uuid.UUID) ([]models.Participant, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.participantRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participation history: %w", err)
	}
	return items, nil
}

// DeletePlayer удаляет учётную запись игрока вместе с профилем; регистрации
// и результаты удаляет бэкенд каскадом.
func (s *profileService) DeletePlayer(ctx context.Context, actor *models.Session, playerID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.profileRepo.Delete(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("failed to delete player: %w", err)
	}
	s.logger.Info("player deleted", slog.String("player_id", playerID.String()), slog.String("by", actor.UserID.String()))
	return nil
}
