package services

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/repositories/repotest"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *repotest.Store
	guard  *pages.Guard
	events *recordingPublisher
	logger *slog.Logger
	admin  *models.Session
	player *models.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	store.Now = func() time.Time { return testNow }

	adminProfile := store.AddProfile(models.Profile{Username: "root", Role: models.RoleAdmin})
	playerProfile := store.AddProfile(models.Profile{Username: "neo"})

	return &fixture{
		store:  store,
		guard:  pages.NewGuard(),
		events: &recordingPublisher{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		admin:  &models.Session{UserID: adminProfile.ID, Profile: &adminProfile},
		player: &models.Session{UserID: playerProfile.ID, Profile: &playerProfile},
	}
}

func fixedClock() time.Time { return testNow }

// upcomingTournament: опубликованный турнир с открытой регистрацией.
func (f *fixture) upcomingTournament(title string) models.Tournament {
	return f.store.AddTournament(models.Tournament{
		Title:                title,
		GameType:             "cs2",
		StartDate:            testNow.Add(72 * time.Hour),
		EndDate:              testNow.Add(96 * time.Hour),
		RegistrationDeadline: testNow.Add(48 * time.Hour),
		Status:               models.StatusUpcoming,
		Published:            true,
		CreatedBy:            f.admin.UserID,
	})
}

type publishedEvent struct {
	Room    string
	Type    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(room, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{room, eventType, payload})
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}
