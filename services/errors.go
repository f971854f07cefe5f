package services

import (
	"errors"
	"strings"
)

// Общие ошибки сервисов. Текст каждой из них безопасен для показа пользователю.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationRequired = errors.New("please sign in to continue")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailTaken             = errors.New("an account with this email already exists")

	// Сущности
	ErrNewsNotFound       = errors.New("news article not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrProfileNotFound    = errors.New("profile not found")

	// Регистрация на турнир
	ErrAlreadyRegistered  = errors.New("You are already registered")
	ErrRegistrationClosed = errors.New("registration for this tournament is closed")
	ErrTournamentFull     = errors.New("tournament registration is full")

	// Прочее
	ErrInvalidReference        = errors.New("referenced tournament or player does not exist")
	ErrTournamentInvalidStatus = errors.New("invalid tournament status provided")
	ErrInvalidRank             = errors.New("rank must be a positive number")
	ErrUploadsDisabled         = errors.New("image uploads are not configured")
	ErrUnsupportedImageType    = errors.New("unsupported image type, use JPEG, PNG, WebP or GIF")
)

// ValidationError: не заполнены обязательные поля формы.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "required: " + strings.Join(e.Fields, ", ")
}

// UserMessage: текст для уведомления в форме.
func (e *ValidationError) UserMessage() string {
	return "Please fill in the required fields: " + strings.Join(e.Fields, ", ") + "."
}

// UserErrors: ошибки, текст которых можно показывать как есть.
var UserErrors = []error{
	ErrNotFound,
	ErrAuthenticationRequired,
	ErrForbiddenOperation,
	ErrInvalidCredentials,
	ErrEmailTaken,
	ErrNewsNotFound,
	ErrTournamentNotFound,
	ErrPlayerNotFound,
	ErrProfileNotFound,
	ErrAlreadyRegistered,
	ErrRegistrationClosed,
	ErrTournamentFull,
	ErrInvalidReference,
	ErrTournamentInvalidStatus,
	ErrInvalidRank,
	ErrUploadsDisabled,
	ErrUnsupportedImageType,
}
