package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type PlayerStats struct {
	JoinedTournaments   int `json:"joined_tournaments"`
	UpcomingTournaments int `json:"upcoming_tournaments"`
	TotalResults        int `json:"total_results"`
	RecentNews          int `json:"recent_news"`
}

type AdminStats struct {
	Players           int64 `json:"players"`
	News              int64 `json:"news"`
	PublishedNews     int64 `json:"published_news"`
	Tournaments       int64 `json:"tournaments"`
	ActiveTournaments int64 `json:"active_tournaments"`
	Registrations     int64 `json:"registrations"`
}

type ActivityKind string

const (
	ActivityNews       ActivityKind = "news"
	ActivityTournament ActivityKind = "tournament"
)

// ActivityItem: строка ленты последних изменений в админке.
type ActivityItem struct {
	Kind      ActivityKind `json:"kind"`
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Detail    string       `json:"detail"`
	CreatedAt time.Time    `json:"created_at"`
}

// AvgParticipants: среднее число регистраций на турнир, округлённое.
func (s AdminStats) AvgParticipants() int64 {
	if s.Tournaments <= 0 {
		return 0
	}
	return int64(math.Round(float64(s.Registrations) / float64(s.Tournaments)))
}

func (s AdminStats) ContentItems() int64 {
	return s.News + s.Tournaments
}
