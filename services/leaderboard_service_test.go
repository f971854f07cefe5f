package services

import (
	"errors"
	"testing"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortByRank_StableForTies(t *testing.T) {
	items := []models.Result{
		{Rank: 3, Points: 10},
		{Rank: 1, Points: 50},
		{Rank: 2, Points: 40},
		{Rank: 2, Points: 45},
	}
	SortByRank(items)

	assert.Equal(t, []int{1, 2, 2, 3}, []int{items[0].Rank, items[1].Rank, items[2].Rank, items[3].Rank})
	// при равном месте сохраняется порядок выборки, очки не учитываются
	assert.Equal(t, 40, items[1].Points)
	assert.Equal(t, 45, items[2].Points)
}

func TestLeaderboardResults(t *testing.T) {
	f := newFixture(t)
	svc := NewLeaderboardService(f.store.Tournaments(), f.store.Results(), f.guard)
	tr := f.upcomingTournament("Cup")
	other := f.store.AddProfile(models.Profile{Username: "morpheus"})

	f.store.AddResult(models.Result{TournamentID: tr.ID, PlayerID: other.ID, Rank: 2, Points: 90})
	f.store.AddResult(models.Result{TournamentID: tr.ID, PlayerID: f.player.UserID, Rank: 1, Points: 80})

	rows, err := svc.Results(t.Context(), f.admin, tr.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].Player)
	assert.Equal(t, "neo", rows[0].Player.Username)
	assert.Equal(t, "morpheus", rows[1].Player.Username)
}

func TestLeaderboardRecord(t *testing.T) {
	f := newFixture(t)
	svc := NewLeaderboardService(f.store.Tournaments(), f.store.Results(), f.guard)
	tr := f.upcomingTournament("Cup")

	r, err := svc.Record(t.Context(), f.admin, ResultInput{TournamentID: tr.ID, PlayerID: f.player.UserID, Rank: rank(1), Points: 100})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, 1, r.Rank)

	_, err = svc.Record(t.Context(), f.admin, ResultInput{TournamentID: tr.ID})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"player", "rank"}, ve.Fields)

	_, err = svc.Record(t.Context(), f.admin, ResultInput{TournamentID: uuid.New(), PlayerID: f.player.UserID, Rank: rank(1)})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func rank(n int) *int { return &n }

func TestLeaderboardRecord_RejectsNonPositiveRank(t *testing.T) {
	f := newFixture(t)
	svc := NewLeaderboardService(f.store.Tournaments(), f.store.Results(), f.guard)
	tr := f.upcomingTournament("Cup")

	for _, n := range []int{0, -3} {
		_, err := svc.Record(t.Context(), f.admin, ResultInput{TournamentID: tr.ID, PlayerID: f.player.UserID, Rank: rank(n)})
		assert.ErrorIs(t, err, ErrInvalidRank, "rank %d", n)
		var ve *ValidationError
		assert.False(t, errors.As(err, &ve), "rank %d is present, not missing", n)
	}

	rows, err := svc.Results(t.Context(), f.admin, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLeaderboardRecord_RejectsDuplicateInFlight(t *testing.T) {
	f := newFixture(t)
	svc := NewLeaderboardService(f.store.Tournaments(), f.store.Results(), f.guard)
	tr := f.upcomingTournament("Cup")

	release, err := f.guard.Acquire(pages.Key("result-form", f.admin.UserID.String()))
	require.NoError(t, err)

	_, err = svc.Record(t.Context(), f.admin, ResultInput{TournamentID: tr.ID, PlayerID: f.player.UserID, Rank: rank(1)})
	assert.ErrorIs(t, err, pages.ErrInFlight)

	release()
	_, err = svc.Record(t.Context(), f.admin, ResultInput{TournamentID: tr.ID, PlayerID: f.player.UserID, Rank: rank(1)})
	assert.NoError(t, err)
}

func TestLeaderboardMyResults(t *testing.T) {
	f := newFixture(t)
	svc := NewLeaderboardService(f.store.Tournaments(), f.store.Results(), f.guard)
	tr := f.upcomingTournament("Cup")
	f.store.AddResult(models.Result{TournamentID: tr.ID, PlayerID: f.player.UserID, Rank: 4})

	rows, err := svc.MyResults(t.Context(), f.player)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Tournament)
	assert.Equal(t, "Cup", rows[0].Tournament.Title)
}
