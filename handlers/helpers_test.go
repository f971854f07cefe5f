package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/middleware"
	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/repositories/repotest"
	"github.com/Dosada05/esports-hub/services"
	"github.com/Dosada05/esports-hub/storage"
	"github.com/Dosada05/esports-hub/web"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testUserHeader = "X-Test-User"

type fakeAuth struct {
	mu        sync.Mutex
	users     map[string]gateway.User
	passwords map[string]string
	persisted []*gateway.Session
	ended     int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: map[string]gateway.User{}, passwords: map[string]string{}}
}

func (a *fakeAuth) SignUp(_ context.Context, email, password string) (*gateway.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[email]; ok {
		return nil, gateway.ErrEmailTaken
	}
	u := gateway.User{ID: uuid.New(), Email: email}
	a.users[email] = u
	a.passwords[email] = password
	return &gateway.Session{AccessToken: "access", RefreshToken: "refresh", User: u}, nil
}

func (a *fakeAuth) SignInWithPassword(_ context.Context, email, password string) (*gateway.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[email]
	if !ok || a.passwords[email] != password {
		return nil, gateway.ErrInvalidCredentials
	}
	return &gateway.Session{AccessToken: "access", RefreshToken: "refresh", User: u}, nil
}

func (a *fakeAuth) Persist(_ http.ResponseWriter, s *gateway.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.persisted = append(a.persisted, s)
}

func (a *fakeAuth) ResetAuthIfInvalid(context.Context, http.ResponseWriter, *http.Request) *gateway.Session {
	return nil
}

func (a *fakeAuth) EndSession(context.Context, http.ResponseWriter, *http.Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ended++
	return nil
}

// testUploader держит объекты в памяти и отдаёт их по адресу cdn.test.
type testUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *testUploader) Upload(_ context.Context, key, _ string, body io.ReadSeeker, _ int64) (*storage.UploadResult, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = b
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *testUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *testUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type testEnv struct {
	store    *repotest.Store
	auth     *fakeAuth
	uploader *testUploader
	router   chi.Router
	admin    *models.Session
	player   *models.Session
}

// newTestEnv собирает хендлеры поверх настоящих сервисов и in-memory хранилища.
// Сессия подставляется заголовком X-Test-User: admin | player.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repotest.NewStore()
	guard := pages.NewGuard()
	auth := newFakeAuth()

	templates, err := web.Parse()
	require.NoError(t, err)

	adminProfile := store.AddProfile(models.Profile{Username: "root", Role: models.RoleAdmin})
	playerProfile := store.AddProfile(models.Profile{Username: "neo"})

	env := &testEnv{
		store:    store,
		auth:     auth,
		uploader: &testUploader{objects: map[string][]byte{}},
		admin:    &models.Session{UserID: adminProfile.ID, Email: "root@example.com", Profile: &adminProfile},
		player:   &models.Session{UserID: playerProfile.ID, Email: "neo@example.com", Profile: &playerProfile},
	}

	newsService := services.NewNewsService(store.News(), env.uploader, guard, nil, logger)
	tournamentService := services.NewTournamentService(store.Tournaments(), store.Participants(), guard, nil, logger)
	registrationService := services.NewRegistrationService(store.Tournaments(), store.Participants(), guard, nil, logger)
	leaderboardService := services.NewLeaderboardService(store.Tournaments(), store.Results(), guard)
	profileService := services.NewProfileService(store.Profiles(), store.Participants(), guard, logger)
	dashboardService := services.NewDashboardService(store.Participants(), store.Results(), store.News())
	adminService := services.NewAdminService(store.Profiles(), store.News(), store.Tournaments(), store.Participants())
	authService := services.NewAuthService(auth, store.Profiles(), logger)

	rs := NewResponder(templates, logger)
	sessions := middleware.NewSessionProvider(auth, store.Profiles(), logger)

	public := NewPublicHandler(newsService, tournamentService, rs, logger)
	authHandler := NewAuthHandler(authService, auth, sessions, rs, logger)
	dashboard := NewDashboardHandler(dashboardService, tournamentService, newsService, profileService, registrationService, leaderboardService, rs, logger)
	admin := NewAdminHandler(adminService, newsService, tournamentService, profileService, leaderboardService, true, rs, logger)

	r := chi.NewRouter()
	r.Use(env.withTestSession)
	r.Get("/", public.Home)
	r.Get("/news", public.NewsList)
	r.Get("/news/{id}", public.NewsDetail)
	r.Get("/tournaments", public.Tournaments)
	r.Get("/auth", authHandler.Page)
	r.Post("/auth/signin", authHandler.SignIn)
	r.Post("/auth/signup", authHandler.SignUp)
	r.Post("/auth/signout", authHandler.SignOut)
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Get("/", dashboard.Overview)
		r.Get("/profile", dashboard.Profile)
		r.Post("/profile", dashboard.UpdateProfile)
		r.Get("/tournaments", dashboard.Tournaments)
		r.Post("/tournaments/{id}/register", dashboard.Register)
		r.Get("/registrations", dashboard.Registrations)
		r.Get("/results", dashboard.Results)
		r.Get("/news", public.NewsList)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireSession, middleware.RequireAdmin)
		r.Get("/", admin.Overview)
		r.Get("/news", admin.NewsList)
		r.Post("/news/{id}/publish", admin.ToggleNewsPublished)
		r.Post("/news/{id}/feature", admin.ToggleNewsFeatured)
		r.Get("/news/{id}/delete", admin.DeleteNews)
		r.Post("/news/{id}/delete", admin.DeleteNews)
		r.Get("/create", admin.NewsForm)
		r.Post("/create", admin.SaveNews)
		r.Get("/create/{id}", admin.NewsForm)
		r.Post("/create/{id}", admin.SaveNews)
		r.Get("/tournaments", admin.Tournaments)
		r.Post("/tournaments", admin.SaveTournament)
		r.Post("/tournaments/{id}", admin.SaveTournament)
		r.Post("/tournaments/{id}/publish", admin.ToggleTournamentPublished)
		r.Get("/tournaments/{id}/delete", admin.DeleteTournament)
		r.Post("/tournaments/{id}/delete", admin.DeleteTournament)
		r.Get("/players", admin.Players)
		r.Get("/players/{id}/delete", admin.DeletePlayer)
		r.Post("/players/{id}/delete", admin.DeletePlayer)
		r.Get("/results", admin.Results)
		r.Post("/results", admin.RecordResult)
	})
	env.router = r
	return env
}

func (e *testEnv) withTestSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *models.Session
		switch r.Header.Get(testUserHeader) {
		case "admin":
			sess = e.admin
		case "player":
			sess = e.player
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithSession(r.Context(), sess)))
	})
}

type request struct {
	method string
	path   string
	as     string
	json   bool
	form   url.Values
	body   any
}

func (e *testEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	return serve(e, httpRequest(t, req))
}

func httpRequest(t *testing.T, req request) *http.Request {
	t.Helper()
	if req.method == "" {
		req.method = http.MethodGet
	}

	var r *http.Request
	switch {
	case req.body != nil:
		raw, err := json.Marshal(req.body)
		require.NoError(t, err)
		r = httptest.NewRequest(req.method, req.path, strings.NewReader(string(raw)))
		r.Header.Set("Content-Type", "application/json")
	case req.form != nil:
		r = httptest.NewRequest(req.method, req.path, strings.NewReader(req.form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		r = httptest.NewRequest(req.method, req.path, nil)
	}
	if req.json {
		r.Header.Set("Accept", "application/json")
	}
	if req.as != "" {
		r.Header.Set(testUserHeader, req.as)
	}
	return r
}

func serve(e *testEnv, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// flashFrom достаёт уведомление, выставленное перед редиректом.
func flashFrom(t *testing.T, rec *httptest.ResponseRecorder) *pages.Notice {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name != flashCookie || c.Value == "" {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(c.Value)
		require.NoError(t, err)
		var n pages.Notice
		require.NoError(t, json.Unmarshal(raw, &n))
		return &n
	}
	return nil
}

func (e *testEnv) openTournament(title string) models.Tournament {
	now := time.Now().UTC()
	return e.store.AddTournament(models.Tournament{
		Title:                title,
		GameType:             "cs2",
		StartDate:            now.Add(72 * time.Hour),
		EndDate:              now.Add(96 * time.Hour),
		RegistrationDeadline: now.Add(48 * time.Hour),
		Status:               models.StatusUpcoming,
		Published:            true,
		CreatedBy:            e.admin.UserID,
	})
}
