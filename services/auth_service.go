package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
)

// Authenticator: часть gateway.Auth, нужная для входа и регистрации.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*gateway.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*gateway.Session, error)
}

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	SignUp(ctx context.Context, input SignUpInput) (*gateway.Session, error)
	SignIn(ctx context.Context, input SignInInput) (*gateway.Session, error)
}

type authService struct {
	auth        Authenticator
	profileRepo repositories.ProfileRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewAuthService(auth Authenticator, profileRepo repositories.ProfileRepository, logger *slog.Logger) AuthService {
	return &authService{
		auth:        auth,
		profileRepo: profileRepo,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *authService) SignUp(ctx context.Context, input SignUpInput) (*gateway.Session, error) {
	if err := required(
		field("email", input.Email),
		field("password", input.Password),
		field("username", input.Username),
	); err != nil {
		return nil, err
	}

	sess, err := s.auth.SignUp(ctx, strings.TrimSpace(input.Email), input.Password)
	if err != nil {
		if errors.Is(err, gateway.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}

	now := s.now()
	profile := &models.Profile{
		ID:        sess.User.ID,
		Username:  strings.TrimSpace(input.Username),
		FullName:  optionalString(input.FullName),
		Role:      models.RolePlayer,
		GameIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		// Аккаунт уже создан: вход возможен, в шапке будет "User" до заполнения профиля.
		s.logger.Error("failed to create profile for new user",
			slog.String("user_id", sess.User.ID.String()), slog.Any("error", err))
		return sess, nil
	}

	s.logger.Info("user signed up", slog.String("user_id", sess.User.ID.String()))
	return sess, nil
}

func (s *authService) SignIn(ctx context.Context, input SignInInput) (*gateway.Session, error) {
	if err := required(field("email", input.Email), field("password", input.Password)); err != nil {
		return nil, err
	}
	sess, err := s.auth.SignInWithPassword(ctx, strings.TrimSpace(input.Email), input.Password)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return sess, nil
}
