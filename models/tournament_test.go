package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixtureTournament(now time.Time) Tournament {
	return Tournament{
		Title:                "Spring Cup",
		StartDate:            now.Add(48 * time.Hour),
		EndDate:              now.Add(72 * time.Hour),
		RegistrationDeadline: now.Add(24 * time.Hour),
		Status:               StatusUpcoming,
	}
}

func TestTournament_EffectiveStatus_AdvancesWithDates(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr := fixtureTournament(now)

	assert.Equal(t, StatusUpcoming, tr.EffectiveStatus(now))
	assert.Equal(t, StatusOngoing, tr.EffectiveStatus(now.Add(50*time.Hour)))
	assert.Equal(t, StatusFinished, tr.EffectiveStatus(now.Add(72*time.Hour)))
}

func TestTournament_EffectiveStatus_NeverMovesBackwards(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr := fixtureTournament(now)
	tr.Status = StatusFinished

	assert.Equal(t, StatusFinished, tr.EffectiveStatus(now))

	tr.Status = StatusOngoing
	assert.Equal(t, StatusOngoing, tr.EffectiveStatus(now))
}

func TestTournament_IsRegistrationOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("before deadline", func(t *testing.T) {
		assert.True(t, fixtureTournament(now).IsRegistrationOpen(now))
	})

	t.Run("deadline passed while status says upcoming", func(t *testing.T) {
		tr := fixtureTournament(now)
		tr.RegistrationDeadline = now.Add(-time.Minute)
		assert.Equal(t, StatusUpcoming, tr.Status)
		assert.False(t, tr.IsRegistrationOpen(now))
	})

	t.Run("deadline is exclusive", func(t *testing.T) {
		tr := fixtureTournament(now)
		tr.RegistrationDeadline = now
		assert.False(t, tr.IsRegistrationOpen(now))
	})

	t.Run("not upcoming", func(t *testing.T) {
		tr := fixtureTournament(now)
		tr.Status = StatusOngoing
		assert.False(t, tr.IsRegistrationOpen(now))
	})
}

func TestSession_Roles(t *testing.T) {
	var none *Session
	assert.False(t, none.IsAuthenticated())
	assert.False(t, none.IsAdmin())
	assert.Equal(t, "User", none.DisplayName())

	full := "Jane Doe"
	s := &Session{UserID: [16]byte{1}, Profile: &Profile{Username: "jane", FullName: &full, Role: RoleAdmin}}
	assert.True(t, s.IsAuthenticated())
	assert.True(t, s.IsAdmin())
	assert.Equal(t, "Jane Doe", s.DisplayName())

	noProfile := &Session{UserID: [16]byte{2}}
	assert.False(t, noProfile.IsAdmin())
	assert.Equal(t, "User", noProfile.DisplayName())
}
