package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/google/uuid"
)

var ErrResultInvalidRef = errors.New("invalid tournament or player reference")

var resultColumns = []string{"id", "tournament_id", "player_id", "rank", "points", "created_at"}

type ResultRepository interface {
	Create(ctx context.Context, result *models.Result) error
	// ListByTournament: результаты по возрастанию rank, с игроком.
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Result, error)
	// ListByPlayer: результаты игрока с названием турнира.
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Result, error)
	CountByPlayer(ctx context.Context, playerID uuid.UUID) (int64, error)
}

type postgresResultRepository struct {
	gw *gateway.Client
}

func NewPostgresResultRepository(gw *gateway.Client) ResultRepository {
	return &postgresResultRepository{gw: gw}
}

func (r *postgresResultRepository) Create(ctx context.Context, res *models.Result) error {
	m := r.gw.Insert("tournament_results", gateway.Values{
		"tournament_id": res.TournamentID,
		"player_id":     res.PlayerID,
		"rank":          res.Rank,
		"points":        res.Points,
		"created_at":    res.CreatedAt,
	}).Returning(resultColumns...)

	created, err := gateway.ApplySingle(ctx, m, func(row gateway.Row) (models.Result, error) {
		var c models.Result
		err := row.Scan(&c.ID, &c.TournamentID, &c.PlayerID, &c.Rank, &c.Points, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		if gateway.IsForeignKeyViolation(err) {
			return ErrResultInvalidRef
		}
		return err
	}
	*res = created
	return nil
}

func (r *postgresResultRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Result, error) {
	q := r.gw.From("tournament_results").
		Select(resultColumns...).
		Embed("player", "profiles", "player_id", "username", "full_name").
		Eq("tournament_id", tournamentID).
		Order("rank", true)

	return gateway.Select(ctx, q, func(row gateway.Row) (models.Result, error) {
		var (
			res      models.Result
			username sql.NullString
			fullName sql.NullString
		)
		err := row.Scan(&res.ID, &res.TournamentID, &res.PlayerID, &res.Rank, &res.Points, &res.CreatedAt, &username, &fullName)
		res.Player = embeddedProfile(res.PlayerID, username, fullName)
		return res, err
	})
}

func (r *postgresResultRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Result, error) {
	q := r.gw.From("tournament_results").
		Select(resultColumns...).
		Embed("tournament", "tournaments", "tournament_id", "title").
		Eq("player_id", playerID).
		Order("created_at", false)

	return gateway.Select(ctx, q, func(row gateway.Row) (models.Result, error) {
		var (
			res   models.Result
			title sql.NullString
		)
		err := row.Scan(&res.ID, &res.TournamentID, &res.PlayerID, &res.Rank, &res.Points, &res.CreatedAt, &title)
		if title.Valid {
			res.Tournament = &models.Tournament{ID: res.TournamentID, Title: title.String}
		}
		return res, err
	})
}

func (r *postgresResultRepository) CountByPlayer(ctx context.Context, playerID uuid.UUID) (int64, error) {
	return r.gw.From("tournament_results").Eq("player_id", playerID).Count(ctx, gateway.CountExact)
}
