// Package repotest provides in-memory implementations of the repository
// interfaces for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/repositories"
	"github.com/google/uuid"
)

// Store holds every table; the repository views returned by its methods share it.
type Store struct {
	mu sync.Mutex

	Now func() time.Time

	profiles     []models.Profile
	news         []models.News
	tournaments  []models.Tournament
	participants []models.Participant
	results      []models.Result
	// accounts: строки auth_users; профиль удаляется вместе со своей.
	accounts map[uuid.UUID]struct{}

	failures map[string]error
}

func NewStore() *Store {
	return &Store{
		Now:      time.Now,
		accounts: make(map[uuid.UUID]struct{}),
		failures: make(map[string]error),
	}
}

// Fail makes the named operation ("news.ListPublished", "participants.Create", ...) return err.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failures[op]
}

func (s *Store) News() repositories.NewsRepository { return &newsRepo{s} }
func (s *Store) Tournaments() repositories.TournamentRepository { return &tournamentRepo{s} }
func (s *Store) Profiles() repositories.ProfileRepository { return &profileRepo{s} }
func (s *Store) Participants() repositories.ParticipantRepository { return &participantRepo{s} }
func (s *Store) Results() repositories.ResultRepository { return &resultRepo{s} }

// ---- seeding ----

func (s *Store) AddProfile(p models.Profile) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Role == "" {
		p.Role = models.RolePlayer
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.Now()
	}
	if p.GameIDs == nil {
		p.GameIDs = []string{}
	}
	s.profiles = append(s.profiles, p)
	s.accounts[p.ID] = struct{}{}
	return p
}

// HasAccount: осталась ли учётная запись для входа.
func (s *Store) HasAccount(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[id]
	return ok
}

func (s *Store) AddNews(n models.News) models.News {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.Now()
	}
	s.news = append(s.news, n)
	return n
}

func (s *Store) AddTournament(t models.Tournament) models.Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = models.StatusUpcoming
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.Now()
	}
	s.tournaments = append(s.tournaments, t)
	return t
}

func (s *Store) AddParticipant(tournamentID, playerID uuid.UUID) models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Participant{ID: uuid.New(), TournamentID: tournamentID, PlayerID: playerID, RegisteredAt: s.Now()}
	s.participants = append(s.participants, p)
	return p
}

func (s *Store) AddResult(r models.Result) models.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.Now()
	}
	s.results = append(s.results, r)
	return r
}

// ParticipantCount counts stored registrations for a pair.
func (s *Store) ParticipantCount(tournamentID, playerID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.participants {
		if p.TournamentID == tournamentID && p.PlayerID == playerID {
			n++
		}
	}
	return n
}

// ---- lookups (caller holds mu) ----

func (s *Store) tournamentByID(id uuid.UUID) (*models.Tournament, int) {
	for i := range s.tournaments {
		if s.tournaments[i].ID == id {
			return &s.tournaments[i], i
		}
	}
	return nil, -1
}

func (s *Store) profileByID(id uuid.UUID) (*models.Profile, int) {
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			return &s.profiles[i], i
		}
	}
	return nil, -1
}

func (s *Store) newsByID(id uuid.UUID) (*models.News, int) {
	for i := range s.news {
		if s.news[i].ID == id {
			return &s.news[i], i
		}
	}
	return nil, -1
}

func newestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}

func window[T any](items []T, from, to int) []T {
	if from >= len(items) {
		return []T{}
	}
	end := to + 1
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[from:end]...)
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
