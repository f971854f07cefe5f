package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

var profileColumns = []string{"id", "username", "full_name", "role", "game_ids", "created_at", "updated_at"}

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListAll(ctx context.Context) ([]models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type postgresProfileRepository struct {
	gw *gateway.Client
}

func NewPostgresProfileRepository(gw *gateway.Client) ProfileRepository {
	return &postgresProfileRepository{gw: gw}
}

func scanProfile(row gateway.Row) (models.Profile, error) {
	var (
		p        models.Profile
		fullName sql.NullString
	)
	err := row.Scan(&p.ID, &p.Username, &fullName, &p.Role, pq.Array(&p.GameIDs), &p.CreatedAt, &p.UpdatedAt)
	p.FullName = nullStringPtr(fullName)
	if p.GameIDs == nil {
		p.GameIDs = []string{}
	}
	return p, err
}

func gameIDsValue(ids []string) interface{} {
	if ids == nil {
		ids = []string{}
	}
	return pq.Array(ids)
}

func (r *postgresProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	m := r.gw.Insert("profiles", gateway.Values{
		"id":         p.ID,
		"username":   p.Username,
		"full_name":  emptyToNil(p.FullName),
		"role":       p.Role,
		"game_ids":   gameIDsValue(p.GameIDs),
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}).Returning(profileColumns...)

	created, err := gateway.ApplySingle(ctx, m, scanProfile)
	if err != nil {
		if gateway.IsUniqueViolation(err, "profiles_pkey") {
			return ErrProfileExists
		}
		return err
	}
	*p = created
	return nil
}

func (r *postgresProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	q := r.gw.From("profiles").Select(profileColumns...).Eq("id", id)
	p, err := gateway.Single(ctx, q, scanProfile)
	if err != nil {
		return nil, mapNoRows(err, ErrProfileNotFound)
	}
	return &p, nil
}

func (r *postgresProfileRepository) ListAll(ctx context.Context) ([]models.Profile, error) {
	q := r.gw.From("profiles").Select(profileColumns...).Order("created_at", false)
	return gateway.Select(ctx, q, scanProfile)
}

// Update меняет только редактируемые игроком поля; роль здесь не трогается.
func (r *postgresProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	m := r.gw.Update("profiles", gateway.Values{
		"username":   p.Username,
		"full_name":  emptyToNil(p.FullName),
		"game_ids":   gameIDsValue(p.GameIDs),
		"updated_at": p.UpdatedAt,
	}).Eq("id", p.ID).Returning(profileColumns...)

	updated, err := gateway.ApplySingle(ctx, m, scanProfile)
	if err != nil {
		return mapNoRows(err, ErrProfileNotFound)
	}
	*p = updated
	return nil
}

// Delete удаляет учётную запись целиком одним запросом: строка auth_users
// уходит, а профиль, refresh-токены, регистрации и результаты удаляются
// каскадом в БД. Вход с тем же паролем после этого невозможен.
func (r *postgresProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.deleteAccount(id).Exec(ctx)
	return checkAffectedRows(n, err, ErrProfileNotFound)
}

func (r *postgresProfileRepository) deleteAccount(id uuid.UUID) *gateway.Mutation {
	return r.gw.Delete("auth_users").Eq("id", id)
}

func (r *postgresProfileRepository) Count(ctx context.Context) (int64, error) {
	return r.gw.From("profiles").Count(ctx, gateway.CountEstimated)
}
