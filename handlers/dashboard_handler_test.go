package handlers

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{path: "/dashboard"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	rec = env.do(t, request{path: "/dashboard", json: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
}

func TestDashboard_Overview(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")
	env.store.AddParticipant(tour.ID, env.player.UserID)
	env.store.AddNews(models.News{Title: "Patch notes", Content: "c", Published: true})

	rec := env.do(t, request{path: "/dashboard", as: "player", json: true})

	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeJSON[dashboardView](t, rec)
	require.NotNil(t, view.Stats.Item)
	assert.Equal(t, 1, view.Stats.Item.JoinedTournaments)
	assert.Equal(t, 1, view.Stats.Item.UpcomingTournaments)
	assert.Equal(t, 1, view.Stats.Item.RecentNews)
	assert.Len(t, view.Tournaments.Items, 1)
	assert.Len(t, view.News.Items, 1)

	html := env.do(t, request{path: "/dashboard", as: "player"})
	require.Equal(t, http.StatusOK, html.Code)
	assert.Contains(t, html.Body.String(), "Welcome back, neo")
}

func TestRegister_FlowAndDuplicate(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")
	path := "/dashboard/tournaments/" + tour.ID.String() + "/register"

	rec := env.do(t, request{method: http.MethodPost, path: path, as: "player"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/tournaments", rec.Header().Get("Location"))
	assert.Equal(t, &pages.Notice{Kind: pages.NoticeSuccess, Text: "Successfully registered for Spring Cup!"}, flashFrom(t, rec))
	assert.Equal(t, 1, env.store.ParticipantCount(tour.ID, env.player.UserID))

	rec = env.do(t, request{method: http.MethodPost, path: path, as: "player"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, &pages.Notice{Kind: pages.NoticeError, Text: "You are already registered"}, flashFrom(t, rec))

	rec = env.do(t, request{method: http.MethodPost, path: path, as: "player", json: true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"You are already registered"}`, rec.Body.String())
	assert.Equal(t, 1, env.store.ParticipantCount(tour.ID, env.player.UserID))

	view := decodeJSON[playerTournamentsView](t, env.do(t, request{path: "/dashboard/tournaments", as: "player", json: true}))
	require.Len(t, view.Tournaments.Items, 1)
	assert.Equal(t, models.RegistrationRegistered, view.Tournaments.Items[0].RegistrationState)
}

func TestRegister_UnknownTournament(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodPost, path: "/dashboard/tournaments/nope/register", as: "player", json: true})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFlashIsShownOnce(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")

	rec := env.do(t, request{method: http.MethodPost, path: "/dashboard/tournaments/" + tour.ID.String() + "/register", as: "player"})
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := request{path: "/dashboard/tournaments", as: "player"}
	r := httpRequest(t, req)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	page := serve(env, r)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Successfully registered for Spring Cup!")

	var cleared bool
	for _, c := range page.Result().Cookies() {
		if c.Name == flashCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestProfile_UpdateAndValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/dashboard/profile",
		as:     "player",
		form:   url.Values{"username": {"trinity"}, "full_name": {"Trinity"}, "game_ids": {"steam:1, riot:2"}},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Profile updated successfully!", flashFrom(t, rec).Text)

	view := decodeJSON[profileView](t, env.do(t, request{path: "/dashboard/profile", as: "player", json: true}))
	require.NotNil(t, view.Profile)
	assert.Equal(t, "trinity", view.Profile.Username)
	assert.Equal(t, []string{"steam:1", "riot:2"}, view.Profile.GameIDs)

	rec = env.do(t, request{
		method: http.MethodPost,
		path:   "/dashboard/profile",
		as:     "player",
		form:   url.Values{"username": {"  "}, "full_name": {"Keep me"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please fill in the required fields: username.")
	assert.Contains(t, rec.Body.String(), `value="Keep me"`)
}

func TestMyResultsAndRegistrations(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")
	env.store.AddParticipant(tour.ID, env.player.UserID)
	env.store.AddResult(models.Result{TournamentID: tour.ID, PlayerID: env.player.UserID, Rank: 2, Points: 40})

	regs := decodeJSON[registrationsView](t, env.do(t, request{path: "/dashboard/registrations", as: "player", json: true}))
	assert.Len(t, regs.Registrations.Items, 1)

	results := env.do(t, request{path: "/dashboard/results", as: "player"})
	require.Equal(t, http.StatusOK, results.Code)
	assert.Contains(t, results.Body.String(), "#2")

	empty := env.do(t, request{path: "/dashboard/results", as: "admin"})
	assert.Contains(t, empty.Body.String(), "No results yet")
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusForError(&services.ValidationError{Fields: []string{"title"}}))
	assert.Equal(t, http.StatusConflict, statusForError(pages.ErrInFlight))
	assert.Equal(t, http.StatusForbidden, statusForError(services.ErrRegistrationClosed))
	assert.Equal(t, http.StatusInternalServerError, statusForError(assert.AnError))
}
