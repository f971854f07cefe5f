package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/Dosada05/esports-hub/middleware"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/web"
)

const flashCookie = "sb-flash"

// Responder отдаёт одну и ту же страницу как HTML или как JSON.
type Responder struct {
	templates *web.Templates
	logger    *slog.Logger
}

func NewResponder(templates *web.Templates, logger *slog.Logger) *Responder {
	return &Responder{templates: templates, logger: logger}
}

type page struct {
	name   string
	title  string
	area   string
	status int
}

func (rs *Responder) render(w http.ResponseWriter, r *http.Request, p page, content any) {
	if p.status == 0 {
		p.status = http.StatusOK
	}
	if middleware.WantsJSON(r) {
		if err := writeJSON(w, p.status, content, nil); err != nil {
			rs.logger.Error("failed to write json page", slog.String("page", p.name), slog.Any("error", err))
		}
		return
	}

	data := web.PageData{
		Title:   p.title,
		Area:    p.area,
		Path:    r.URL.Path,
		Session: middleware.SessionFromContext(r.Context()),
		Flash:   takeFlash(w, r),
		Content: content,
	}
	var buf bytes.Buffer
	if err := rs.templates.Render(&buf, p.name, data); err != nil {
		rs.logger.Error("failed to render page", slog.String("page", p.name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(p.status)
	if _, err := buf.WriteTo(w); err != nil {
		rs.logger.Debug("failed to write page", slog.String("page", p.name), slog.Any("error", err))
	}
}

// fragmentHeader ставит live.js, когда дописывает следующую страницу списка.
const fragmentHeader = "X-Fragment"

func wantsFragment(r *http.Request) bool {
	return r.Header.Get(fragmentHeader) != ""
}

// fragment отдаёт кусок страницы без layout. Если блок не загрузился,
// клиент получает 503 и переходит на полную страницу с уведомлением.
func (rs *Responder) fragment(w http.ResponseWriter, r *http.Request, pageName, block string, content any) {
	if f, ok := content.(interface{ Failed() bool }); ok && f.Failed() {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	var buf bytes.Buffer
	if err := rs.templates.RenderFragment(&buf, pageName, block, content); err != nil {
		rs.logger.Error("failed to render fragment", slog.String("page", pageName), slog.String("block", block), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Add("Vary", fragmentHeader)
	if _, err := buf.WriteTo(w); err != nil {
		rs.logger.Debug("failed to write fragment", slog.String("page", pageName), slog.Any("error", err))
	}
}

// done завершает успешную запись: JSON-клиент получает данные,
// браузер: уведомление и 303 на страницу со свежими данными.
func (rs *Responder) done(w http.ResponseWriter, r *http.Request, status int, data any, redirectTo string, notice *pages.Notice) {
	if middleware.WantsJSON(r) {
		if err := writeJSON(w, status, data, nil); err != nil {
			rs.logger.Error("failed to write json response", slog.Any("error", err))
		}
		return
	}
	setFlash(w, notice)
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}

// fail: неудачная запись без формы для повторного показа.
func (rs *Responder) fail(w http.ResponseWriter, r *http.Request, redirectTo string, err error) {
	rs.logWriteError(r, err)
	if middleware.WantsJSON(r) {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	setFlash(w, pages.Failure(err, knownErrors...))
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}

func (rs *Responder) logWriteError(r *http.Request, err error) {
	if statusForError(err) == http.StatusInternalServerError {
		rs.logger.Error("write failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
		return
	}
	rs.logger.Info("write rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
}

// discarded: клиент ушёл, отвечать некому.
func (rs *Responder) discarded(r *http.Request, err error) bool {
	if errors.Is(err, pages.ErrDiscarded) {
		rs.logger.Debug("request canceled, page discarded", slog.String("path", r.URL.Path))
		return true
	}
	return false
}

type confirmView struct {
	Heading string `json:"heading"`
	Message string `json:"message"`
	Action  string `json:"action"`
	Cancel  string `json:"cancel"`
}

// confirm показывает страницу подтверждения удаления. JSON-клиент должен
// прислать confirm=yes сам.
func (rs *Responder) confirm(w http.ResponseWriter, r *http.Request, view confirmView) {
	if middleware.WantsJSON(r) {
		errorResponse(w, r, http.StatusBadRequest, "confirmation required: repeat the POST with confirm=yes in the form body")
		return
	}
	rs.render(w, r, page{name: "confirm", title: view.Heading, area: "admin"}, view)
}

func isJSONBody(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

func setFlash(w http.ResponseWriter, notice *pages.Notice) {
	if notice == nil {
		return
	}
	raw, err := json.Marshal(notice)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash читает одноразовое уведомление и сразу удаляет cookie.
func takeFlash(w http.ResponseWriter, r *http.Request) *pages.Notice {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var n pages.Notice
	if err := json.Unmarshal(raw, &n); err != nil || n.Text == "" {
		return nil
	}
	// Kind приходит от клиента, поэтому допускаем только известные значения.
	if n.Kind != pages.NoticeSuccess {
		n.Kind = pages.NoticeError
	}
	return &n
}
