package repositories

import (
	"database/sql"
	"errors"

	"github.com/Dosada05/esports-hub/gateway"
)

func checkAffectedRows(rowsAffected int64, err error, notFoundError error) error {
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

// mapNoRows подменяет gateway.ErrNoRows ошибкой конкретного репозитория.
func mapNoRows(err, notFoundError error) error {
	if errors.Is(err, gateway.ErrNoRows) {
		return notFoundError
	}
	return err
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// emptyToNil: пустые необязательные поля формы хранятся как NULL.
func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
