package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/google/uuid"
)

var (
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrParticipantConflict   = errors.New("player is already registered for this tournament")
	ErrParticipantInvalidRef = errors.New("invalid tournament or player reference")
)

const participantUniqueKey = "tournament_participants_tournament_id_player_id_key"

var participantColumns = []string{"id", "tournament_id", "player_id", "registered_at"}

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	// ListByPlayer: регистрации игрока вместе с турнирами.
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Participant, error)
	// ListByTournament: участники турнира с username/full_name.
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Participant, error)
	CountByTournament(ctx context.Context, tournamentID uuid.UUID) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type postgresParticipantRepository struct {
	gw *gateway.Client
}

func NewPostgresParticipantRepository(gw *gateway.Client) ParticipantRepository {
	return &postgresParticipantRepository{gw: gw}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	m := r.gw.Insert("tournament_participants", gateway.Values{
		"tournament_id": p.TournamentID,
		"player_id":     p.PlayerID,
	}).Returning(participantColumns...)

	created, err := gateway.ApplySingle(ctx, m, func(row gateway.Row) (models.Participant, error) {
		var c models.Participant
		err := row.Scan(&c.ID, &c.TournamentID, &c.PlayerID, &c.RegisteredAt)
		return c, err
	})
	if err != nil {
		switch {
		case gateway.IsUniqueViolation(err, participantUniqueKey):
			return ErrParticipantConflict
		case gateway.IsForeignKeyViolation(err):
			return ErrParticipantInvalidRef
		}
		return err
	}
	*p = created
	return nil
}

func (r *postgresParticipantRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Participant, error) {
	q := r.gw.From("tournament_participants").
		Select(participantColumns...).
		Embed("tournament", "tournaments", "tournament_id", tournamentColumns...).
		Eq("player_id", playerID).
		Order("registered_at", false)

	return gateway.Select(ctx, q, func(row gateway.Row) (models.Participant, error) {
		var (
			p           models.Participant
			t           models.Tournament
			description sql.NullString
		)
		err := row.Scan(
			&p.ID, &p.TournamentID, &p.PlayerID, &p.RegisteredAt,
			&t.ID, &t.Title, &description, &t.GameType, &t.StartDate, &t.EndDate,
			&t.RegistrationDeadline, &t.MaxParticipants, &t.Status, &t.Published,
			&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
		)
		t.Description = nullStringPtr(description)
		p.Tournament = &t
		return p, err
	})
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Participant, error) {
	q := r.gw.From("tournament_participants").
		Select(participantColumns...).
		Embed("player", "profiles", "player_id", "username", "full_name").
		Eq("tournament_id", tournamentID).
		Order("registered_at", true)

	return gateway.Select(ctx, q, func(row gateway.Row) (models.Participant, error) {
		var (
			p        models.Participant
			username sql.NullString
			fullName sql.NullString
		)
		err := row.Scan(&p.ID, &p.TournamentID, &p.PlayerID, &p.RegisteredAt, &username, &fullName)
		p.Player = embeddedProfile(p.PlayerID, username, fullName)
		return p, err
	})
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, tournamentID uuid.UUID) (int64, error) {
	return r.gw.From("tournament_participants").Eq("tournament_id", tournamentID).Count(ctx, gateway.CountExact)
}

func (r *postgresParticipantRepository) Count(ctx context.Context) (int64, error) {
	return r.gw.From("tournament_participants").Count(ctx, gateway.CountEstimated)
}

// embeddedProfile собирает частичный профиль из LEFT JOIN; nil, если строки нет.
func embeddedProfile(id uuid.UUID, username, fullName sql.NullString) *models.Profile {
	if !username.Valid {
		return nil
	}
	return &models.Profile{ID: id, Username: username.String, FullName: nullStringPtr(fullName)}
}
