package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	session *gateway.Session
	ended   int
	endErr  error
}

func (s *stubResolver) ResetAuthIfInvalid(context.Context, http.ResponseWriter, *http.Request) *gateway.Session {
	return s.session
}

func (s *stubResolver) EndSession(context.Context, http.ResponseWriter, *http.Request) error {
	s.ended++
	return s.endErr
}

type stubProfiles struct {
	profile *models.Profile
	err     error
}

func (s stubProfiles) GetByID(context.Context, uuid.UUID) (*models.Profile, error) {
	return s.profile, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func captureSession(t *testing.T, p *SessionProvider) *models.Session {
	t.Helper()
	var got *models.Session
	h := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	return got
}

func TestSessionProvider_ResolvesIdentityAndProfile(t *testing.T) {
	id := uuid.New()
	resolver := &stubResolver{session: &gateway.Session{User: gateway.User{ID: id, Email: "neo@example.com"}}}
	p := NewSessionProvider(resolver, stubProfiles{profile: &models.Profile{ID: id, Username: "neo", Role: models.RoleAdmin}}, discardLogger())

	sess := captureSession(t, p)
	require.NotNil(t, sess)
	assert.Equal(t, id, sess.UserID)
	assert.True(t, sess.IsAdmin())
	assert.Equal(t, "neo", sess.DisplayName())
}

func TestSessionProvider_ProfileFailureKeepsIdentity(t *testing.T) {
	resolver := &stubResolver{session: &gateway.Session{User: gateway.User{ID: uuid.New()}}}
	p := NewSessionProvider(resolver, stubProfiles{err: errors.New("boom")}, discardLogger())

	sess := captureSession(t, p)
	require.NotNil(t, sess)
	assert.True(t, sess.IsAuthenticated())
	assert.Nil(t, sess.Profile)
	assert.Equal(t, "User", sess.DisplayName())
}

func TestSessionProvider_NoSession(t *testing.T) {
	p := NewSessionProvider(&stubResolver{}, stubProfiles{}, discardLogger())
	assert.Nil(t, captureSession(t, p))
}

func TestSessionProvider_SignOutSwallowsErrors(t *testing.T) {
	resolver := &stubResolver{endErr: errors.New("network")}
	p := NewSessionProvider(resolver, stubProfiles{}, discardLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	p.SignOut(rec, req)
	p.SignOut(rec, req)
	assert.Equal(t, 2, resolver.ended)
}

func TestRequireSession(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := RequireSession(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(WithSession(req.Context(), &models.Session{UserID: uuid.New()}))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := RequireAdmin(ok)

	player := &models.Session{UserID: uuid.New(), Profile: &models.Profile{Role: models.RolePlayer}}
	admin := &models.Session{UserID: uuid.New(), Profile: &models.Profile{Role: models.RoleAdmin}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	h.ServeHTTP(rec, req.WithContext(WithSession(req.Context(), player)))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithSession(req.Context(), admin)))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, WantsJSON(req))

	req.Header.Set("Accept", "text/html, application/json;q=0.9")
	assert.True(t, WantsJSON(req))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	assert.True(t, WantsJSON(req))
}
