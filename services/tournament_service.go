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
)

// TournamentCard: турнир в том виде, в каком его видит пользователь:
// статус продвинут по датам, флаг открытой регистрации посчитан.
type TournamentCard struct {
	models.Tournament
	EffectiveStatus   models.TournamentStatus  `json:"effective_status"`
	RegistrationOpen  bool                     `json:"registration_open"`
	RegistrationState models.RegistrationState `json:"registration_state,omitempty"`
}

func newCard(t models.Tournament, now time.Time) TournamentCard {
	return TournamentCard{
		Tournament:       t,
		EffectiveStatus:  t.EffectiveStatus(now),
		RegistrationOpen: t.IsRegistrationOpen(now),
	}
}

func newCards(items []models.Tournament, now time.Time) []TournamentCard {
	cards := make([]TournamentCard, 0, len(items))
	for _, t := range items {
		cards = append(cards, newCard(t, now))
	}
	return cards
}

type TournamentFilter struct {
	Status   models.TournamentStatus
	GameType string
}

func (f TournamentFilter) Active() bool {
	return f.Status != "" || f.GameType != ""
}

type TournamentInput struct {
	Title                string                  `json:"title"`
	Description          string                  `json:"description"`
	GameType             string                  `json:"game_type"`
	StartDate            time.Time               `json:"start_date"`
	EndDate              time.Time               `json:"end_date"`
	RegistrationDeadline time.Time               `json:"registration_deadline"`
	MaxParticipants      int                     `json:"max_participants"`
	Status               models.TournamentStatus `json:"status"`
	Published            bool                    `json:"published"`
}

type TournamentService interface {
	ListPublic(ctx context.Context, filter TournamentFilter) ([]TournamentCard, error)
	Upcoming(ctx context.Context, limit int) ([]TournamentCard, error)
	Latest(ctx context.Context, limit int) ([]TournamentCard, error)

	ListForAdmin(ctx context.Context, actor *models.Session) ([]TournamentCard, error)
	GetForEdit(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.Tournament, error)
	// Save создаёт турнир, если id == nil, иначе обновляет существующий.
	Save(ctx context.Context, actor *models.Session, id *uuid.UUID, input TournamentInput) (*models.Tournament, bool, error)
	TogglePublished(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.Tournament, error)
	Delete(ctx context.Context, actor *models.Session, id uuid.UUID) error
	Registrations(ctx context.Context, actor *models.Session, id uuid.UUID) ([]models.Participant, error)

	// SyncStatuses продвигает сохранённые статусы по датам. Возвращает число обновлённых турниров.
	SyncStatuses(ctx context.Context) (int, error)
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	guard           *pages.Guard
	publisher       Publisher
	logger          *slog.Logger
	now             func() time.Time
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	guard *pages.Guard,
	publisher Publisher,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		guard:           guard,
		publisher:       publisherOrNoop(publisher),
		logger:          logger,
		now:             time.Now,
	}
}

// ListPublic: тип игры фильтруется запросом, статус по EffectiveStatus,
// иначе сохранённый статус, отставший от дат, дал бы неверную выборку.
func (s *tournamentService) ListPublic(ctx context.Context, filter TournamentFilter) ([]TournamentCard, error) {
	items, err := s.tournamentRepo.ListByStartDate(ctx, repositories.ListTournamentsFilter{
		PublishedOnly: true,
		GameType:      filter.GameType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	now := s.now()
	cards := make([]TournamentCard, 0, len(items))
	for _, t := range items {
		card := newCard(t, now)
		if filter.Status != "" && card.EffectiveStatus != filter.Status {
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (s *tournamentService) Upcoming(ctx context.Context, limit int) ([]TournamentCard, error) {
	now := s.now()
	items, err := s.tournamentRepo.ListUpcoming(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming tournaments: %w", err)
	}
	return newCards(items, now), nil
}

func (s *tournamentService) Latest(ctx context.Context, limit int) ([]TournamentCard, error) {
	items, err := s.tournamentRepo.ListNewest(ctx, repositories.ListTournamentsFilter{PublishedOnly: true, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list latest tournaments: %w", err)
	}
	return newCards(items, s.now()), nil
}

func (s *tournamentService) ListForAdmin(ctx context.Context, actor *models.Session) ([]TournamentCard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.tournamentRepo.ListNewest(ctx, repositories.ListTournamentsFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return newCards(items, s.now()), nil
}

func (s *tournamentService) GetForEdit(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.Tournament, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentError(err)
	}
	return t, nil
}

func (s *tournamentService) Save(ctx context.Context, actor *models.Session, id *uuid.UUID, input TournamentInput) (*models.Tournament, bool, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, false, err
	}
	if err := validateTournamentInput(input); err != nil {
		return nil, false, err
	}
	status := input.Status
	if status == "" {
		status = models.StatusUpcoming
	}
	if !status.Valid() {
		return nil, false, ErrTournamentInvalidStatus
	}

	release, err := s.guard.Acquire(pages.Key("tournament-form", actor.UserID.String()))
	if err != nil {
		return nil, false, err
	}
	defer release()

	now := s.now()
	t := &models.Tournament{
		Title:                input.Title,
		Description:          optionalString(input.Description),
		GameType:             input.GameType,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationDeadline: input.RegistrationDeadline,
		MaxParticipants:      input.MaxParticipants,
		Status:               status,
		Published:            input.Published,
		UpdatedAt:            now,
	}

	wasPublic := false
	created := id == nil
	if created {
		t.CreatedBy = actor.UserID
		t.CreatedAt = now
		err = s.tournamentRepo.Create(ctx, t)
	} else {
		var prev *models.Tournament
		if prev, err = s.tournamentRepo.GetByID(ctx, *id); err != nil {
			return nil, false, mapTournamentError(err)
		}
		wasPublic = prev.Published
		t.ID = *id
		err = s.tournamentRepo.Update(ctx, t)
	}
	if err != nil {
		return nil, false, mapTournamentError(err)
	}

	event := EventUpdated
	if created {
		event = EventCreated
	}
	publishVisible(s.publisher, RoomTournaments, event, t.ID, wasPublic, t.Published)
	return t, created, nil
}

func validateTournamentInput(input TournamentInput) error {
	missing := missingFields(field("title", input.Title), field("game type", input.GameType))
	for _, d := range []struct {
		name string
		at   time.Time
	}{
		{"start date", input.StartDate},
		{"end date", input.EndDate},
		{"registration deadline", input.RegistrationDeadline},
	} {
		if d.at.IsZero() {
			missing = append(missing, d.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func (s *tournamentService) TogglePublished(ctx context.Context, actor *models.Session, id uuid.UUID) (*models.Tournament, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cur, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentError(err)
	}
	t, err := s.tournamentRepo.SetPublished(ctx, id, !cur.Published)
	if err != nil {
		return nil, mapTournamentError(err)
	}
	publishVisible(s.publisher, RoomTournaments, EventUpdated, t.ID, cur.Published, t.Published)
	return t, nil
}

func (s *tournamentService) Delete(ctx context.Context, actor *models.Session, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	cur, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return mapTournamentError(err)
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return mapTournamentError(err)
	}
	publishVisible(s.publisher, RoomTournaments, EventDeleted, id, cur.Published, cur.Published)
	return nil
}

func (s *tournamentService) Registrations(ctx context.Context, actor *models.Session, id uuid.UUID) ([]models.Participant, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.participantRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return items, nil
}

func (s *tournamentService) SyncStatuses(ctx context.Context) (int, error) {
	now := s.now()
	items, err := s.tournamentRepo.ListForStatusSync(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments for status sync: %w", err)
	}

	updated := 0
	for _, t := range items {
		next := t.EffectiveStatus(now)
		if next == t.Status {
			continue
		}
		err := s.tournamentRepo.UpdateStatus(ctx, t.ID, t.Status, next)
		if errors.Is(err, repositories.ErrTournamentStatusChanged) {
			// админ успел поменять статус, следующий проход разберётся
			s.logger.Debug("tournament status changed concurrently", slog.String("tournament_id", t.ID.String()))
			continue
		}
		if err != nil {
			return updated, fmt.Errorf("failed to update status of tournament %s: %w", t.ID, err)
		}
		updated++
		t.Status = next
		publishVisible(s.publisher, RoomTournaments, EventUpdated, t.ID, t.Published, t.Published)
	}
	return updated, nil
}

// GameTypes: различные типы игр в порядке первого появления.
func GameTypes(cards []TournamentCard) []string {
	seen := make(map[string]struct{}, len(cards))
	out := make([]string, 0)
	for _, c := range cards {
		if _, ok := seen[c.GameType]; ok || c.GameType == "" {
			continue
		}
		seen[c.GameType] = struct{}{}
		out = append(out, c.GameType)
	}
	return out
}

func mapTournamentError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentInvalidOwner):
		return ErrProfileNotFound
	default:
		return fmt.Errorf("tournament operation failed: %w", err)
	}
}
