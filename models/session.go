package models

import "github.com/google/uuid"

// Session: разрешённая для запроса сессия: identity и (если найден) профиль.
type Session struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	Profile *Profile  `json:"profile,omitempty"`
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != uuid.Nil
}

func (s *Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.Profile.IsAdmin()
}

// DisplayName для шапки; без профиля показываем "User".
func (s *Session) DisplayName() string {
	if s == nil {
		return "User"
	}
	return s.Profile.DisplayName()
}
