package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/google/uuid"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionResolver: часть gateway.Auth, отвечающая за сессию запроса.
type SessionResolver interface {
	ResetAuthIfInvalid(ctx context.Context, w http.ResponseWriter, r *http.Request) *gateway.Session
	EndSession(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

type ProfileLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// SessionProvider разрешает {identity, profile} до того, как запрос попадёт
// в хендлер, и кладёт результат в контекст.
type SessionProvider struct {
	resolver SessionResolver
	profiles ProfileLoader
	logger   *slog.Logger
}

func NewSessionProvider(resolver SessionResolver, profiles ProfileLoader, logger *slog.Logger) *SessionProvider {
	return &SessionProvider{resolver: resolver, profiles: profiles, logger: logger}
}

// Resolve возвращает nil, если сессии нет или она недействительна.
// Ошибку загрузки профиля не считаем фатальной: identity остаётся, профиль nil.
func (p *SessionProvider) Resolve(w http.ResponseWriter, r *http.Request) *models.Session {
	gs := p.resolver.ResetAuthIfInvalid(r.Context(), w, r)
	if gs == nil {
		return nil
	}

	sess := &models.Session{UserID: gs.User.ID, Email: gs.User.Email}
	profile, err := p.profiles.GetByID(r.Context(), gs.User.ID)
	switch {
	case err == nil:
		sess.Profile = profile
	case errors.Is(err, context.Canceled):
	default:
		p.logger.Warn("failed to load profile for session",
			slog.String("user_id", gs.User.ID.String()), slog.Any("error", err))
	}
	return sess
}

func (p *SessionProvider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := p.Resolve(w, r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// SignOut идемпотентен; ошибки только логируются.
func (p *SessionProvider) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := p.resolver.EndSession(r.Context(), w, r); err != nil {
		p.logger.Warn("sign out failed", slog.Any("error", err))
	}
}

func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFromContext возвращает nil для анонимного запроса.
func SessionFromContext(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(sessionContextKey).(*models.Session)
	return sess
}

// RequireSession: без сессии HTML-запрос уходит на /auth, JSON получает 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).IsAuthenticated() {
			deny(w, r, http.StatusUnauthorized, "/auth", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin: не-админ уходит на главную, JSON получает 403.
// Вешается после RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).IsAdmin() {
			deny(w, r, http.StatusForbidden, "/", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
