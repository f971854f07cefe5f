package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/google/uuid"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentInvalidOwner = errors.New("invalid creator reference")
	// ErrTournamentStatusChanged: статус уже изменён кем-то другим.
	ErrTournamentStatusChanged = errors.New("tournament status changed concurrently")
)

var tournamentColumns = []string{
	"id", "title", "description", "game_type", "start_date", "end_date",
	"registration_deadline", "max_participants", "status", "published",
	"created_by", "created_at", "updated_at",
}

type ListTournamentsFilter struct {
	PublishedOnly bool
	GameType      string
	Limit         int
}

type CountTournamentsFilter struct {
	Statuses []models.TournamentStatus
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	Update(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	// ListByStartDate: по дате начала, ближайшие первыми.
	ListByStartDate(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// ListNewest: по дате создания, новые первыми.
	ListNewest(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Tournament, error)
	ListForStatusSync(ctx context.Context, now time.Time) ([]models.Tournament, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TournamentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter CountTournamentsFilter) (int64, error)
}

type postgresTournamentRepository struct {
	gw *gateway.Client
}

func NewPostgresTournamentRepository(gw *gateway.Client) TournamentRepository {
	return &postgresTournamentRepository{gw: gw}
}

func scanTournament(row gateway.Row) (models.Tournament, error) {
	var (
		t           models.Tournament
		description sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.Title, &description, &t.GameType, &t.StartDate, &t.EndDate,
		&t.RegistrationDeadline, &t.MaxParticipants, &t.Status, &t.Published,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	t.Description = nullStringPtr(description)
	return t, err
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if gateway.IsForeignKeyViolation(err) {
		return ErrTournamentInvalidOwner
	}
	return mapNoRows(err, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	m := r.gw.Insert("tournaments", gateway.Values{
		"title":                 t.Title,
		"description":           emptyToNil(t.Description),
		"game_type":             t.GameType,
		"start_date":            t.StartDate,
		"end_date":              t.EndDate,
		"registration_deadline": t.RegistrationDeadline,
		"max_participants":      t.MaxParticipants,
		"status":                t.Status,
		"published":             t.Published,
		"created_by":            t.CreatedBy,
		"created_at":            t.CreatedAt,
		"updated_at":            t.UpdatedAt,
	}).Returning(tournamentColumns...)

	created, err := gateway.ApplySingle(ctx, m, scanTournament)
	if err != nil {
		return r.handleTournamentError(err)
	}
	*t = created
	return nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	m := r.gw.Update("tournaments", gateway.Values{
		"title":                 t.Title,
		"description":           emptyToNil(t.Description),
		"game_type":             t.GameType,
		"start_date":            t.StartDate,
		"end_date":              t.EndDate,
		"registration_deadline": t.RegistrationDeadline,
		"max_participants":      t.MaxParticipants,
		"status":                t.Status,
		"published":             t.Published,
		"updated_at":            t.UpdatedAt,
	}).Eq("id", t.ID).Returning(tournamentColumns...)

	updated, err := gateway.ApplySingle(ctx, m, scanTournament)
	if err != nil {
		return r.handleTournamentError(err)
	}
	*t = updated
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	q := r.gw.From("tournaments").Select(tournamentColumns...).Eq("id", id)
	t, err := gateway.Single(ctx, q, scanTournament)
	if err != nil {
		return nil, mapNoRows(err, ErrTournamentNotFound)
	}
	return &t, nil
}

func (r *postgresTournamentRepository) filtered(filter ListTournamentsFilter) *gateway.Query {
	q := r.gw.From("tournaments").Select(tournamentColumns...)
	if filter.PublishedOnly {
		q = q.Eq("published", true)
	}
	if filter.GameType != "" {
		q = q.Eq("game_type", filter.GameType)
	}
	return q
}

func (r *postgresTournamentRepository) ListByStartDate(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	q := r.filtered(filter).Order("start_date", true)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return gateway.Select(ctx, q, scanTournament)
}

func (r *postgresTournamentRepository) ListNewest(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	q := r.filtered(filter).Order("created_at", false)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return gateway.Select(ctx, q, scanTournament)
}

func (r *postgresTournamentRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Tournament, error) {
	q := r.gw.From("tournaments").Select(tournamentColumns...).
		Eq("published", true).
		Eq("status", models.StatusUpcoming).
		Gte("start_date", now).
		Order("start_date", true).
		Limit(limit)
	return gateway.Select(ctx, q, scanTournament)
}

// ListForStatusSync возвращает незавершённые турниры, которые уже начались.
func (r *postgresTournamentRepository) ListForStatusSync(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	q := r.gw.From("tournaments").Select(tournamentColumns...).
		Neq("status", models.StatusFinished).
		Lte("start_date", now).
		Order("start_date", true)
	return gateway.Select(ctx, q, scanTournament)
}

func (r *postgresTournamentRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.Tournament, error) {
	m := r.gw.Update("tournaments", gateway.Values{
		"published":  published,
		"updated_at": time.Now().UTC(),
	}).Eq("id", id).Returning(tournamentColumns...)

	t, err := gateway.ApplySingle(ctx, m, scanTournament)
	if err != nil {
		return nil, mapNoRows(err, ErrTournamentNotFound)
	}
	return &t, nil
}

// UpdateStatus меняет статус только если он всё ещё равен from.
func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TournamentStatus) error {
	n, err := r.gw.Update("tournaments", gateway.Values{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}).Eq("id", id).Eq("status", from).Exec(ctx)
	return checkAffectedRows(n, err, ErrTournamentStatusChanged)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.gw.Delete("tournaments").Eq("id", id).Exec(ctx)
	return checkAffectedRows(n, err, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Count(ctx context.Context, filter CountTournamentsFilter) (int64, error) {
	q := r.gw.From("tournaments")
	if len(filter.Statuses) > 0 {
		statuses := make([]any, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s
		}
		q = q.In("status", statuses...)
	}
	return q.Count(ctx, gateway.CountEstimated)
}
