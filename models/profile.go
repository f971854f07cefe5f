package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RolePlayer || r == RoleAdmin
}

// Profile: публичная часть аккаунта, одна на identity.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  *string   `json:"full_name,omitempty"`
	Role      Role      `json:"role"`
	GameIDs   []string  `json:"game_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName возвращает полное имя, если оно задано, иначе username.
func (p *Profile) DisplayName() string {
	if p == nil {
		return "User"
	}
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Username
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
