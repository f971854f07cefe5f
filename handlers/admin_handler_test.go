package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/Dosada05/esports-hub/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_PlayerIsRedirectedHome(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{path: "/admin", as: "player"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = env.do(t, request{path: "/admin", as: "player", json: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdmin_Overview(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")
	env.store.AddParticipant(tour.ID, env.player.UserID)
	env.store.AddNews(models.News{Title: "Hello", Content: "c", Published: true})

	view := decodeJSON[adminView](t, env.do(t, request{path: "/admin", as: "admin", json: true}))

	require.NotNil(t, view.Stats.Item)
	assert.Equal(t, int64(2), view.Stats.Item.Players)
	assert.Equal(t, int64(1), view.Stats.Item.Tournaments)
	assert.Equal(t, int64(1), view.Stats.Item.Registrations)
	assert.Len(t, view.Activity.Items, 2)

	html := env.do(t, request{path: "/admin", as: "admin"})
	require.Equal(t, http.StatusOK, html.Code)
	assert.Contains(t, html.Body.String(), "Avg. players per tournament")
}

func TestAdmin_NewsLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/admin/create",
		as:     "admin",
		form:   url.Values{"title": {"Major announced"}, "content": {"Details soon"}, "published": {"on"}},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/news", rec.Header().Get("Location"))
	assert.Equal(t, "Article created successfully!", flashFrom(t, rec).Text)

	list := decodeJSON[adminNewsView](t, env.do(t, request{path: "/admin/news?search=major", as: "admin", json: true}))
	require.Len(t, list.News.Items, 1)
	article := list.News.Items[0]
	assert.True(t, article.Published)
	assert.False(t, article.Featured)

	rec = env.do(t, request{method: http.MethodPost, path: "/admin/news/" + article.ID.String() + "/feature", as: "admin"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Article featured", flashFrom(t, rec).Text)

	home := decodeJSON[homeView](t, env.do(t, request{path: "/", json: true}))
	require.Len(t, home.Featured.Items, 1)

	edit := env.do(t, request{path: "/admin/create/" + article.ID.String(), as: "admin"})
	require.Equal(t, http.StatusOK, edit.Code)
	assert.Contains(t, edit.Body.String(), `value="Major announced"`)
	assert.Contains(t, edit.Body.String(), "/admin/create/"+article.ID.String())
}

func TestAdmin_NewsFormKeepsValuesOnError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/admin/create",
		as:     "admin",
		form:   url.Values{"title": {"Half written"}},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please fill in the required fields: content.")
	assert.Contains(t, rec.Body.String(), `value="Half written"`)

	rec = env.do(t, request{method: http.MethodPost, path: "/admin/create", as: "admin", body: services.NewsInput{Title: "x"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestAdmin_DeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	n := env.store.AddNews(models.News{Title: "Old", Content: "c"})
	path := "/admin/news/" + n.ID.String() + "/delete"

	rec := env.do(t, request{path: path, as: "admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Are you sure you want to delete this article?")

	rec = env.do(t, request{method: http.MethodPost, path: path, as: "admin", json: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, request{method: http.MethodPost, path: path, as: "admin", form: url.Values{"confirm": {"yes"}}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Article deleted", flashFrom(t, rec).Text)

	list := decodeJSON[adminNewsView](t, env.do(t, request{path: "/admin/news", as: "admin", json: true}))
	assert.True(t, list.News.Empty)
}

func TestAdmin_DeleteIgnoresConfirmInQuery(t *testing.T) {
	env := newTestEnv(t)
	n := env.store.AddNews(models.News{Title: "Keep me", Content: "c"})
	tour := env.store.AddTournament(models.Tournament{Title: "Cup"})
	player := env.store.AddProfile(models.Profile{Username: "victim"})

	for _, path := range []string{
		"/admin/news/" + n.ID.String() + "/delete?confirm=yes",
		"/admin/tournaments/" + tour.ID.String() + "/delete?confirm=yes",
		"/admin/players/" + player.ID.String() + "/delete?confirm=yes",
	} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, request{path: path, as: "admin"})
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `name="confirm" value="yes"`)

			rec = env.do(t, request{method: http.MethodPost, path: path, as: "admin", form: url.Values{}})
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `name="confirm" value="yes"`)
		})
	}

	_, err := env.store.News().GetByID(context.Background(), n.ID)
	assert.NoError(t, err)
	_, err = env.store.Tournaments().GetByID(context.Background(), tour.ID)
	assert.NoError(t, err)
	_, err = env.store.Profiles().GetByID(context.Background(), player.ID)
	assert.NoError(t, err)
}

func TestAdmin_SaveTournament(t *testing.T) {
	env := newTestEnv(t)
	start := time.Now().UTC().Add(10 * 24 * time.Hour).Truncate(time.Minute)

	form := url.Values{
		"title":                 {"Autumn Open"},
		"game_type":             {"valorant"},
		"start_date":            {start.Format(formDateTimeLayout)},
		"end_date":              {start.Add(48 * time.Hour).Format(formDateTimeLayout)},
		"registration_deadline": {start.Add(-24 * time.Hour).Format(formDateTimeLayout)},
		"max_participants":      {"16"},
		"status":                {"upcoming"},
		"published":             {"on"},
	}
	rec := env.do(t, request{method: http.MethodPost, path: "/admin/tournaments", as: "admin", form: form})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Tournament created successfully!", flashFrom(t, rec).Text)

	view := decodeJSON[tournamentsView](t, env.do(t, request{path: "/tournaments", json: true}))
	require.Len(t, view.Tournaments.Items, 1)
	got := view.Tournaments.Items[0]
	assert.Equal(t, "Autumn Open", got.Title)
	assert.Equal(t, 16, got.MaxParticipants)
	assert.True(t, got.StartDate.Equal(start))
	assert.True(t, got.RegistrationOpen)

	edit := env.do(t, request{path: "/admin/tournaments?edit=" + got.ID.String(), as: "admin"})
	require.Equal(t, http.StatusOK, edit.Code)
	assert.Contains(t, edit.Body.String(), `value="`+start.Format(formDateTimeLayout)+`"`)
}

func TestAdmin_SaveTournamentValidation(t *testing.T) {
	env := newTestEnv(t)
	env.openTournament("Existing")

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/admin/tournaments",
		as:     "admin",
		form:   url.Values{"title": {"No dates"}, "game_type": {"cs2"}},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Please fill in the required fields: start date, end date, registration deadline.")
	assert.Contains(t, body, `value="No dates"`)
	// список перечитывается вместе с формой
	assert.Contains(t, body, "Existing")
}

func TestAdmin_TournamentRegistrations(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")
	env.store.AddParticipant(tour.ID, env.player.UserID)

	rec := env.do(t, request{path: "/admin/tournaments?registrations=" + tour.ID.String(), as: "admin"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "neo")

	other := env.openTournament("Empty Cup")
	rec = env.do(t, request{path: "/admin/tournaments?registrations=" + other.ID.String(), as: "admin"})
	assert.Contains(t, rec.Body.String(), "No players registered")
}

func TestAdmin_PlayersSearchAndHistory(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")
	env.store.AddParticipant(tour.ID, env.player.UserID)

	view := decodeJSON[adminPlayersView](t, env.do(t, request{path: "/admin/players?search=NE&player=" + env.player.UserID.String(), as: "admin", json: true}))

	require.Len(t, view.Players.Items, 1)
	assert.Equal(t, "neo", view.Players.Items[0].Username)
	require.NotNil(t, view.History)
	require.Len(t, view.History.Items, 1)
	assert.Equal(t, "Spring Cup", view.History.Items[0].Tournament.Title)
}

func TestAdmin_RecordResultAndLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")
	env.store.AddParticipant(tour.ID, env.player.UserID)

	picker := decodeJSON[adminResultsView](t, env.do(t, request{path: "/admin/results", as: "admin", json: true}))
	assert.Len(t, picker.Tournaments.Items, 1)
	assert.Nil(t, picker.Results)

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/admin/results",
		as:     "admin",
		form: url.Values{
			"tournament_id": {tour.ID.String()},
			"player_id":     {env.player.UserID.String()},
			"rank":          {"1"},
			"points":        {"100"},
		},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/results?tournament="+tour.ID.String(), rec.Header().Get("Location"))

	view := decodeJSON[adminResultsView](t, env.do(t, request{path: "/admin/results?tournament=" + tour.ID.String(), as: "admin", json: true}))
	require.NotNil(t, view.Results)
	require.Len(t, view.Results.Items, 1)
	assert.Equal(t, 100, view.Results.Items[0].Points)
	assert.Len(t, view.Participants, 1)

	rec = env.do(t, request{method: http.MethodPost, path: "/admin/results", as: "admin", form: url.Values{"tournament_id": {tour.ID.String()}}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(flashFrom(t, rec).Text, "Please fill in the required fields"))
}

func TestAdmin_RecordResultRejectsNonPositiveRank(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament("Spring Cup")

	for _, rank := range []string{"0", "-2", "first"} {
		rec := env.do(t, request{
			method: http.MethodPost,
			path:   "/admin/results",
			as:     "admin",
			form: url.Values{
				"tournament_id": {tour.ID.String()},
				"player_id":     {env.player.UserID.String()},
				"rank":          {rank},
			},
		})
		require.Equal(t, http.StatusSeeOther, rec.Code, rank)
		assert.Equal(t, "rank must be a positive number", flashFrom(t, rec).Text, rank)
	}

	rec := env.do(t, request{method: http.MethodPost, path: "/admin/results", as: "admin", body: map[string]any{
		"tournament_id": tour.ID, "player_id": env.player.UserID, "rank": 0,
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	view := decodeJSON[adminResultsView](t, env.do(t, request{path: "/admin/results?tournament=" + tour.ID.String(), as: "admin", json: true}))
	require.NotNil(t, view.Results)
	assert.Empty(t, view.Results.Items)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func multipartRequest(t *testing.T, path string, fields map[string]string, contentType string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="cover"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(file)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set(testUserHeader, "admin")
	return r
}

func TestAdmin_SaveNewsSniffsCoverType(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env, multipartRequest(t, "/admin/create",
		map[string]string{"title": "Grand Finals", "content": "Recap"},
		"application/octet-stream", pngHeader))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	items, err := env.store.News().ListAll(context.Background(), repositories.ListNewsFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ImageKey)
	assert.True(t, strings.HasSuffix(*items[0].ImageKey, ".png"))
	// после определения типа файл перемотан в начало
	assert.Equal(t, pngHeader, env.uploader.objects[*items[0].ImageKey])
}

func TestImageContentType(t *testing.T) {
	file := bytes.NewReader(pngHeader)

	ct, err := imageContentType(file, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	rest, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, rest)

	ct, err = imageContentType(bytes.NewReader(pngHeader), "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", ct)
}

func TestAdmin_FailedEditKeepsCover(t *testing.T) {
	env := newTestEnv(t)
	key := "news/cover/finals.png"
	n := env.store.AddNews(models.News{Title: "Finals", Content: "c", AuthorID: env.admin.UserID, ImageKey: &key})

	rec := env.do(t, request{
		method: http.MethodPost,
		path:   "/admin/create/" + n.ID.String(),
		as:     "admin",
		form:   url.Values{"title": {"Finals"}},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `src="https://cdn.test/news/cover/finals.png"`)
}
