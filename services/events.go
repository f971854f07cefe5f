package services

import "github.com/google/uuid"

const (
	RoomNews        = "news"
	RoomTournaments = "tournaments"
)

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Publisher рассылает события об изменениях открытым страницам.
type Publisher interface {
	Publish(room, eventType string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, any) {}

func publisherOrNoop(p Publisher) Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// EventRef: события несут только id. Страница сама перечитывает то, что ей
// разрешено видеть, поэтому черновики не попадают в публичные комнаты.
type EventRef struct {
	ID uuid.UUID `json:"id"`
}

// publishVisible шлёт событие, только если запись видна публично сейчас или
// была видна до изменения; снятие с публикации уходит как deleted.
func publishVisible(p Publisher, room, eventType string, id uuid.UUID, wasPublic, isPublic bool) {
	switch {
	case isPublic:
		p.Publish(room, eventType, EventRef{ID: id})
	case wasPublic:
		p.Publish(room, EventDeleted, EventRef{ID: id})
	}
}
