package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type authStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, string, error)
	UserByID(ctx context.Context, id uuid.UUID) (User, error)
	SaveRefreshToken(ctx context.Context, tokenHash string, userID uuid.UUID, expiresAt time.Time) error
	// ConsumeRefreshToken атомарно отзывает живой токен и возвращает его владельца.
	ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

const authUsersEmailKey = "auth_users_email_key"

type postgresAuthStore struct {
	client *Client
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(row Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email)
	return u, err
}

func (s *postgresAuthStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	m := s.client.Insert("auth_users", Values{
		"email":         normalizeEmail(email),
		"password_hash": passwordHash,
	}).Returning("id", "email")

	u, err := ApplySingle(ctx, m, scanUser)
	if err != nil {
		if IsUniqueViolation(err, authUsersEmailKey) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return u, nil
}

func (s *postgresAuthStore) UserByEmail(ctx context.Context, email string) (User, string, error) {
	type userWithHash struct {
		user User
		hash string
	}
	q := s.client.From("auth_users").Select("id", "email", "password_hash").Eq("email", normalizeEmail(email))
	res, err := Single(ctx, q, func(row Row) (userWithHash, error) {
		var r userWithHash
		err := row.Scan(&r.user.ID, &r.user.Email, &r.hash)
		return r, err
	})
	if err != nil {
		return User{}, "", err
	}
	return res.user, res.hash, nil
}

func (s *postgresAuthStore) UserByID(ctx context.Context, id uuid.UUID) (User, error) {
	q := s.client.From("auth_users").Select("id", "email").Eq("id", id)
	return Single(ctx, q, scanUser)
}

func (s *postgresAuthStore) SaveRefreshToken(ctx context.Context, tokenHash string, userID uuid.UUID, expiresAt time.Time) error {
	_, err := s.client.Insert("auth_refresh_tokens", Values{
		"token_hash": tokenHash,
		"user_id":    userID,
		"expires_at": expiresAt,
	}).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (s *postgresAuthStore) ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	m := s.client.Update("auth_refresh_tokens", Values{"revoked": true}).
		Eq("token_hash", tokenHash).
		Eq("revoked", false).
		Gt("expires_at", now).
		Returning("user_id")

	return ApplySingle(ctx, m, func(row Row) (uuid.UUID, error) {
		var id uuid.UUID
		err := row.Scan(&id)
		return id, err
	})
}

func (s *postgresAuthStore) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := s.client.Update("auth_refresh_tokens", Values{"revoked": true}).
		Eq("token_hash", tokenHash).
		Exec(ctx)
	return err
}
