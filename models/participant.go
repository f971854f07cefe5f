package models

import (
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	ID           uuid.UUID `json:"id"`
	TournamentID uuid.UUID `json:"tournament_id"`
	PlayerID     uuid.UUID `json:"player_id"`
	RegisteredAt time.Time `json:"registered_at"`

	// Опциональные связанные сущности
	Tournament *Tournament `json:"tournament,omitempty"`
	Player     *Profile    `json:"player,omitempty"`
}
