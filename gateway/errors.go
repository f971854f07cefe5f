package gateway

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNoRows             = errors.New("gateway: no rows in result set")
	ErrInvalidIdentifier  = errors.New("gateway: invalid identifier")
	ErrInvalidRange       = errors.New("gateway: invalid range")
	ErrUnfilteredMutation = errors.New("gateway: update and delete require at least one filter")
	ErrNoHandle           = errors.New("gateway: query has no database handle")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation сообщает, нарушен ли unique-констрейнт. Пустое имя совпадает с любым.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation
}
