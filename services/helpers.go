package services

import (
	"strings"

	"github.com/Dosada05/esports-hub/models"
)

func requireSession(actor *models.Session) error {
	if !actor.IsAuthenticated() {
		return ErrAuthenticationRequired
	}
	return nil
}

// requireAdmin заменяет row-level политики бэкенда: все admin-операции
// проходят через эту проверку.
func requireAdmin(actor *models.Session) error {
	if err := requireSession(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrForbiddenOperation
	}
	return nil
}

// required возвращает ValidationError с именами пустых обязательных полей.
func required(fields ...[2]string) error {
	if missing := missingFields(fields...); len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func missingFields(fields ...[2]string) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	return missing
}

func field(name, value string) [2]string {
	return [2]string{name, value}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// SplitGameIDs разбирает "id1, id2,,id3" в список без пустых элементов.
func SplitGameIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
