package models

import (
	"time"

	"github.com/google/uuid"
)

type News struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Excerpt   *string   `json:"excerpt,omitempty"`
	AuthorID  uuid.UUID `json:"author_id"`
	// Author: username и полное имя автора, только при чтении.
	Author    *Profile  `json:"author,omitempty"`
	Published bool      `json:"published"`
	Featured  bool      `json:"featured"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ImageKey  *string   `json:"-"`
	ImageURL  *string   `json:"image_url,omitempty"`
}

// Summary возвращает excerpt, а без него начало текста.
func (n News) Summary(max int) string {
	if n.Excerpt != nil && *n.Excerpt != "" {
		return *n.Excerpt
	}
	r := []rune(n.Content)
	if len(r) <= max {
		return n.Content
	}
	return string(r[:max]) + "…"
}
