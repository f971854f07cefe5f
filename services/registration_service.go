package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type RegistrationService interface {
	// Register записывает текущего игрока на опубликованный турнир.
	Register(ctx context.Context, actor *models.Session, tournamentID uuid.UUID) (*models.Participant, error)
	// Cards: опубликованные турниры с состоянием регистрации текущего игрока.
	Cards(ctx context.Context, actor *models.Session) ([]TournamentCard, error)
	MyRegistrations(ctx context.Context, actor *models.Session) ([]models.Participant, error)
}

type registrationService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	guard           *pages.Guard
	publisher       Publisher
	logger          *slog.Logger
	now             func() time.Time
}

func NewRegistrationService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	guard *pages.Guard,
	publisher Publisher,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		guard:           guard,
		publisher:       publisherOrNoop(publisher),
		logger:          logger,
		now:             time.Now,
	}
}

func registrationKey(tournamentID, playerID uuid.UUID) string {
	return pages.Key("register", tournamentID.String(), playerID.String())
}

func (s *registrationService) Register(ctx context.Context, actor *models.Session, tournamentID uuid.UUID) (*models.Participant, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(registrationKey(tournamentID, actor.UserID))
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapTournamentError(err)
	}
	if !t.Published {
		return nil, ErrTournamentNotFound
	}
	if !t.IsRegistrationOpen(s.now()) {
		return nil, ErrRegistrationClosed
	}

	if t.MaxParticipants > 0 {
		count, err := s.participantRepo.CountByTournament(ctx, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to count participants: %w", err)
		}
		// Проверка не атомарна с вставкой; лимит может быть превышен на единицы
		// при одновременных регистрациях разных игроков.
		if count >= int64(t.MaxParticipants) {
			return nil, ErrTournamentFull
		}
	}

	p := &models.Participant{
		TournamentID: tournamentID,
		PlayerID:     actor.UserID,
		RegisteredAt: s.now(),
	}
	if err := s.participantRepo.Create(ctx, p); err != nil {
		switch {
		case errors.Is(err, repositories.ErrParticipantConflict):
			return nil, ErrAlreadyRegistered
		case errors.Is(err, repositories.ErrParticipantInvalidRef):
			return nil, ErrInvalidReference
		default:
			return nil, fmt.Errorf("failed to register participant: %w", err)
		}
	}

	s.logger.Info("player registered for tournament",
		slog.String("tournament_id", tournamentID.String()),
		slog.String("player_id", actor.UserID.String()))
	s.publisher.Publish(RoomTournaments, EventUpdated, EventRef{ID: tournamentID})

	p.Tournament = t
	return p, nil
}

func (s *registrationService) Cards(ctx context.Context, actor *models.Session) ([]TournamentCard, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}

	var (
		tournaments []models.Tournament
		mine        []models.Participant
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournaments, err = s.tournamentRepo.ListByStartDate(gctx, repositories.ListTournamentsFilter{PublishedOnly: true})
		if err != nil {
			return fmt.Errorf("failed to list tournaments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		mine, err = s.participantRepo.ListByPlayer(gctx, actor.UserID)
		if err != nil {
			return fmt.Errorf("failed to list registrations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	registered := make(map[uuid.UUID]struct{}, len(mine))
	for _, p := range mine {
		registered[p.TournamentID] = struct{}{}
	}

	now := s.now()
	cards := newCards(tournaments, now)
	for i := range cards {
		switch {
		case hasKey(registered, cards[i].ID):
			cards[i].RegistrationState = models.RegistrationRegistered
		case s.guard.Busy(registrationKey(cards[i].ID, actor.UserID)):
			cards[i].RegistrationState = models.RegistrationRegistering
		default:
			cards[i].RegistrationState = models.RegistrationUnregistered
		}
	}
	return cards, nil
}

func hasKey(m map[uuid.UUID]struct{}, id uuid.UUID) bool {
	_, ok := m[id]
	return ok
}

func (s *registrationService) MyRegistrations(ctx context.Context, actor *models.Session) ([]models.Participant, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	items, err := s.participantRepo.ListByPlayer(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return items, nil
}
