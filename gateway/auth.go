package gateway

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrSessionExpired      = errors.New("session expired")
)

type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Auth struct {
	store   authStore
	opts    Options
	key     []byte
	cookies CookieStore
	logger  *slog.Logger
	now     func() time.Time
}

func newAuth(store authStore, opts Options, logger *slog.Logger) *Auth {
	return &Auth{
		store:   store,
		opts:    opts,
		key:     []byte(opts.APIKey),
		cookies: CookieStore{Name: opts.StorageKey, Secure: opts.SecureCookies, MaxAge: opts.RefreshTokenTTL},
		logger:  logger,
		now:     time.Now,
	}
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user, err := a.store.CreateUser(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return a.issueSession(ctx, user)
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, hash, err := a.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	return a.issueSession(ctx, user)
}

// GetUser проверяет подпись и срок действия access-токена.
func (a *Auth) GetUser(accessToken string) (*User, error) {
	claims, err := a.parse(accessToken)
	if err != nil {
		return nil, err
	}
	if !claims.VerifyExpiresAt(a.now(), true) {
		return nil, ErrSessionExpired
	}
	return userFromClaims(claims)
}

// Refresh обменивает refresh-токен на новую сессию. Старый токен отзывается.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	userID, err := a.store.ConsumeRefreshToken(ctx, hashToken(refreshToken), a.now())
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}

	user, err := a.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return a.issueSession(ctx, user)
}

// SignOut отзывает refresh-токен. Повторный вызов безопасен.
func (a *Auth) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := a.store.RevokeRefreshToken(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// GetSession валидирует сохранённую сессию. Второй результат true, если
// сессия была обновлена и её нужно сохранить заново.
func (a *Auth) GetSession(ctx context.Context, stored *Session) (*Session, bool, error) {
	if stored == nil || stored.AccessToken == "" {
		return nil, false, nil
	}

	claims, err := a.parse(stored.AccessToken)
	if err != nil {
		return nil, false, err
	}
	user, err := userFromClaims(claims)
	if err != nil {
		return nil, false, err
	}

	expiresAt := claims.ExpiresAt.Time
	remaining := expiresAt.Sub(a.now())

	if remaining > a.opts.RefreshMargin || (remaining > 0 && (!a.opts.AutoRefreshToken || stored.RefreshToken == "")) {
		s := *stored
		s.User = *user
		s.ExpiresAt = expiresAt
		return &s, false, nil
	}

	if !a.opts.AutoRefreshToken {
		return nil, false, ErrSessionExpired
	}

	refreshed, err := a.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		return nil, false, err
	}
	return refreshed, true, nil
}

// ResetAuthIfInvalid загружает сессию запроса. Любая ошибка приводит к
// принудительному выходу: cookie очищается, вызывающий получает nil.
func (a *Auth) ResetAuthIfInvalid(ctx context.Context, w http.ResponseWriter, r *http.Request) *Session {
	stored, fromURL := (*Session)(nil), false
	if a.opts.DetectSessionInURL {
		stored = SessionFromURL(r)
		fromURL = stored != nil
	}

	var err error
	if stored == nil {
		stored, err = a.cookies.Load(r)
	}

	var (
		session   *Session
		refreshed bool
	)
	if err == nil {
		session, refreshed, err = a.GetSession(ctx, stored)
	}

	if err != nil {
		a.logger.Warn("session is invalid, signing out", slog.Any("error", err))
		if stored != nil {
			if signOutErr := a.SignOut(ctx, stored.RefreshToken); signOutErr != nil {
				a.logger.Error("forced sign out failed", slog.Any("error", signOutErr))
			}
		}
		a.cookies.Clear(w)
		return nil
	}

	if session != nil && (refreshed || fromURL) {
		a.Persist(w, session)
	}
	return session
}

// Persist сохраняет сессию в cookie, если это разрешено опциями.
func (a *Auth) Persist(w http.ResponseWriter, s *Session) {
	if !a.opts.PersistSession || s == nil {
		return
	}
	if err := a.cookies.Save(w, s); err != nil {
		a.logger.Error("failed to persist session", slog.Any("error", err))
	}
}

// EndSession отзывает сессию из cookie запроса и очищает её.
func (a *Auth) EndSession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer a.cookies.Clear(w)

	stored, err := a.cookies.Load(r)
	if err != nil || stored == nil {
		return nil
	}
	return a.SignOut(ctx, stored.RefreshToken)
}

func (a *Auth) parse(token string) (*accessClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())

	claims := &accessClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrInvalidAccessToken)
	}
	return claims, nil
}

func userFromClaims(claims *accessClaims) (*User, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject: %v", ErrInvalidAccessToken, err)
	}
	return &User{ID: id, Email: claims.Email}, nil
}

func (a *Auth) issueSession(ctx context.Context, user User) (*Session, error) {
	now := a.now()
	expiresAt := now.Add(a.opts.AccessTokenTTL)

	claims := accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	refresh, err := generateRandomToken(32)
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveRefreshToken(ctx, hashToken(refresh), user.ID, now.Add(a.opts.RefreshTokenTTL)); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
