// Package web содержит HTML-шаблоны страниц и функции для них.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static: файлы для /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// PageData: общие данные layout'а плюс содержимое конкретной страницы.
type PageData struct {
	Title   string
	Area    string // "public", "dashboard", "admin"
	Path    string
	Session *models.Session
	Flash   *pages.Notice
	Content any
}

type Templates struct {
	pages map[string]*template.Template
}

// Parse собирает по шаблону на страницу: layout + partials + страница.
func Parse() (*Templates, error) {
	base, err := template.New("layout").Funcs(Funcs()).ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	t := &Templates{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		t.pages[strings.TrimSuffix(path.Base(file), ".html")] = page
	}
	return t, nil
}

// Render выполняет шаблон целиком в буфер, чтобы ошибка шаблона не оставила
// наполовину отправленную страницу.
func (t *Templates) Render(w io.Writer, page string, data PageData) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderFragment выполняет один блок страницы без layout.
func (t *Templates) RenderFragment(w io.Writer, page, block string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, block, data); err != nil {
		return fmt.Errorf("failed to render %s/%s: %w", page, block, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (t *Templates) Has(page string) bool {
	_, ok := t.pages[page]
	return ok
}

var titleCaser = cases.Title(language.English)

func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"inputDateTime":  inputDateTime,
		"title":          func(s string) string { return titleCaser.String(strings.ReplaceAll(s, "_", " ")) },
		"truncate":       truncate,
		"deref":          deref,
		"join":           strings.Join,
		"add":            func(a, b int) int { return a + b },
		"sameID":         sameID,
		"statusClass":    statusClass,
		"liveRoom":       liveRoom,
	}
}

// liveRoom: websocket-комната, изменения в которой касаются страницы.
func liveRoom(d PageData) string {
	switch {
	case strings.HasSuffix(d.Path, "/news"):
		return "news"
	case strings.HasSuffix(d.Path, "/tournaments"):
		return "tournaments"
	default:
		return ""
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 15:04")
}

// inputDateTime: значение для <input type="datetime-local">.
func inputDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sameID(a uuid.UUID, b *uuid.UUID) bool {
	return b != nil && a == *b
}

func statusClass(s models.TournamentStatus) string {
	switch s {
	case models.StatusOngoing:
		return "badge-green"
	case models.StatusFinished:
		return "badge-gray"
	default:
		return "badge-blue"
	}
}
