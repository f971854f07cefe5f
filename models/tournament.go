package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus соответствует CHECK-ограничению в БД.
type TournamentStatus string

const (
	StatusUpcoming TournamentStatus = "upcoming"
	StatusOngoing  TournamentStatus = "ongoing"
	StatusFinished TournamentStatus = "finished"
)

var statusRank = map[TournamentStatus]int{
	StatusUpcoming: 0,
	StatusOngoing:  1,
	StatusFinished: 2,
}

func (s TournamentStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

type Tournament struct {
	ID                   uuid.UUID        `json:"id"`
	Title                string           `json:"title"`
	Description          *string          `json:"description,omitempty"`
	GameType             string           `json:"game_type"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              time.Time        `json:"end_date"`
	RegistrationDeadline time.Time        `json:"registration_deadline"`
	MaxParticipants      int              `json:"max_participants"`
	Status               TournamentStatus `json:"status"`
	Published            bool             `json:"published"`
	CreatedBy            uuid.UUID        `json:"created_by"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// DateStatus: статус, который следует из дат.
func (t Tournament) DateStatus(now time.Time) TournamentStatus {
	switch {
	case !now.Before(t.EndDate):
		return StatusFinished
	case !now.Before(t.StartDate):
		return StatusOngoing
	default:
		return StatusUpcoming
	}
}

// EffectiveStatus: сохранённый статус, продвинутый вперёд по датам.
// Назад статус не откатывается: турнир, завершённый вручную, остаётся завершённым.
func (t Tournament) EffectiveStatus(now time.Time) TournamentStatus {
	byDate := t.DateStatus(now)
	if !t.Status.Valid() || statusRank[byDate] > statusRank[t.Status] {
		return byDate
	}
	return t.Status
}

// IsRegistrationOpen: дедлайн важнее статуса.
func (t Tournament) IsRegistrationOpen(now time.Time) bool {
	return now.Before(t.RegistrationDeadline) && t.EffectiveStatus(now) == StatusUpcoming
}

// RegistrationState: состояние кнопки регистрации для пары (турнир, игрок).
type RegistrationState string

const (
	RegistrationUnregistered RegistrationState = "unregistered"
	RegistrationRegistering  RegistrationState = "registering"
	RegistrationRegistered   RegistrationState = "registered"
)
