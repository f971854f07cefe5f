package models

import (
	"time"

	"github.com/google/uuid"
)

// Result: место и очки игрока в турнире. Ранг задаётся вручную и не пересчитывается.
type Result struct {
	ID           uuid.UUID `json:"id"`
	TournamentID uuid.UUID `json:"tournament_id"`
	PlayerID     uuid.UUID `json:"player_id"`
	Rank         int       `json:"rank"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`

	Tournament *Tournament `json:"tournament,omitempty"`
	Player     *Profile    `json:"player,omitempty"`
}
