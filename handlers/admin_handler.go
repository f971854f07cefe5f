package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/esports-hub/middleware"
	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/services"
	"github.com/google/uuid"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	// datetime-local из формы; время считается в UTC.
	formDateTimeLayout = "2006-01-02T15:04"
)

type adminView struct {
	Stats    pages.Detail[models.AdminStats]    `json:"stats"`
	Activity pages.Section[models.ActivityItem] `json:"activity"`
}

type adminNewsView struct {
	News   pages.Section[models.News] `json:"news"`
	Search string                     `json:"search,omitempty"`
}

type newsFormView struct {
	ID             *uuid.UUID         `json:"id,omitempty"`
	Form           services.NewsInput `json:"form"`
	ImageURL       *string            `json:"image_url,omitempty"`
	UploadsEnabled bool               `json:"uploads_enabled"`
	Notice         *pages.Notice      `json:"notice,omitempty"`
}

type adminTournamentsView struct {
	Tournaments   pages.Section[services.TournamentCard] `json:"tournaments"`
	Edit          *uuid.UUID                             `json:"edit,omitempty"`
	Form          services.TournamentInput               `json:"-"`
	Statuses      []models.TournamentStatus              `json:"-"`
	Registrations *pages.Section[models.Participant]     `json:"registrations,omitempty"`
	Selected      *uuid.UUID                             `json:"selected,omitempty"`
	Notice        *pages.Notice                          `json:"notice,omitempty"`
}

type adminPlayersView struct {
	Players  pages.Section[models.Profile]      `json:"players"`
	Search   string                             `json:"search,omitempty"`
	Selected *uuid.UUID                         `json:"selected,omitempty"`
	History  *pages.Section[models.Participant] `json:"history,omitempty"`
}

type adminResultsView struct {
	Tournaments  pages.Section[models.Tournament] `json:"tournaments"`
	Selected     *uuid.UUID                       `json:"selected,omitempty"`
	Results      *pages.Section[models.Result]    `json:"results,omitempty"`
	Participants []models.Participant             `json:"participants,omitempty"`
	Notice       *pages.Notice                    `json:"notice,omitempty"`
}

// AdminHandler: консоль администратора. Все маршруты за RequireAdmin.
type AdminHandler struct {
	admin          services.AdminService
	news           services.NewsService
	tournaments    services.TournamentService
	profiles       services.ProfileService
	leaderboard    services.LeaderboardService
	uploadsEnabled bool
	rs             *Responder
	logger         *slog.Logger
}

func NewAdminHandler(
	admin services.AdminService,
	news services.NewsService,
	tournaments services.TournamentService,
	profiles services.ProfileService,
	leaderboard services.LeaderboardService,
	uploadsEnabled bool,
	rs *Responder,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		admin:          admin,
		news:           news,
		tournaments:    tournaments,
		profiles:       profiles,
		leaderboard:    leaderboard,
		uploadsEnabled: uploadsEnabled,
		rs:             rs,
		logger:         logger,
	}
}

// Overview: счётчики и лента активности грузятся независимо друг от друга.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())

	var view adminView
	err := pages.Concurrently(r.Context(),
		func(ctx context.Context) (err error) {
			view.Stats, err = pages.LoadOne(ctx, h.logger, "admin-stats", func(ctx context.Context) (*models.AdminStats, error) {
				stats, err := h.admin.Stats(ctx, actor)
				if err != nil {
					return nil, err
				}
				return &stats, nil
			}, func(error) bool { return false })
			return err
		},
		func(ctx context.Context) (err error) {
			view.Activity, err = pages.Load(ctx, h.logger, "recent-activity", func(ctx context.Context) ([]models.ActivityItem, error) {
				return h.admin.RecentActivity(ctx, actor)
			}, "No recent activity")
			return err
		},
	)
	if h.rs.discarded(r, err) {
		return
	}
	h.rs.render(w, r, page{name: "admin", title: "Admin", area: "admin"}, view)
}

// ---- news ----

func (h *AdminHandler) NewsList(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	section, err := pages.Load(r.Context(), h.logger, "admin-news", func(ctx context.Context) ([]models.News, error) {
		return h.news.ListForAdmin(ctx, actor, search)
	}, "No news articles found.")
	if h.rs.discarded(r, err) {
		return
	}
	h.rs.render(w, r, page{name: "admin_news", title: "News", area: "admin"}, adminNewsView{News: section, Search: search})
}

func (h *AdminHandler) ToggleNewsPublished(w http.ResponseWriter, r *http.Request) {
	h.toggleNews(w, r, h.news.TogglePublished, func(n *models.News) string {
		if n.Published {
			return "Article published"
		}
		return "Article unpublished"
	})
}

func (h *AdminHandler) ToggleNewsFeatured(w http.ResponseWriter, r *http.Request) {
	h.toggleNews(w, r, h.news.ToggleFeatured, func(n *models.News) string {
		if n.Featured {
			return "Article featured"
		}
		return "Article removed from featured"
	})
}

func (h *AdminHandler) toggleNews(
	w http.ResponseWriter,
	r *http.Request,
	toggle func(context.Context, *models.Session, uuid.UUID) (*models.News, error),
	message func(*models.News) string,
) {
	id, err := idParam(r, "id")
	if err != nil {
		h.rs.fail(w, r, "/admin/news", services.ErrNewsNotFound)
		return
	}
	n, err := toggle(r.Context(), middleware.SessionFromContext(r.Context()), id)
	if err != nil {
		h.rs.fail(w, r, "/admin/news", err)
		return
	}
	h.rs.done(w, r, http.StatusOK, jsonResponse{"news": n}, "/admin/news", pages.Success(message(n)))
}

func (h *AdminHandler) DeleteNews(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.rs.fail(w, r, "/admin/news", services.ErrNewsNotFound)
		return
	}
	if !confirmed(r) {
		h.rs.confirm(w, r, confirmView{
			Heading: "Delete article",
			Message: "Are you sure you want to delete this article? This action cannot be undone.",
			Action:  fmt.Sprintf("/admin/news/%s/delete", id),
			Cancel:  "/admin/news",
		})
		return
	}

	if err := h.news.Delete(r.Context(), middleware.SessionFromContext(r.Context()), id); err != nil {
		h.rs.fail(w, r, "/admin/news", err)
		return
	}
	h.rs.done(w, r, http.StatusOK, jsonResponse{"message": "news deleted"}, "/admin/news", pages.Success("Article deleted"))
}

// NewsForm: форма создания (/admin/create) и редактирования (/admin/create/{id}).
func (h *AdminHandler) NewsForm(w http.ResponseWriter, r *http.Request) {
	view := newsFormView{UploadsEnabled: h.uploadsEnabled}

	if urlParam(r, "id") != "" {
		id, err := idParam(r, "id")
		if err != nil {
			h.rs.fail(w, r, "/admin/news", services.ErrNewsNotFound)
			return
		}
		n, err := h.news.GetForEdit(r.Context(), middleware.SessionFromContext(r.Context()), id)
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			h.rs.fail(w, r, "/admin/news", err)
			return
		}
		view.ID = &n.ID
		view.ImageURL = n.ImageURL
		view.Form = services.NewsInput{
			Title:     n.Title,
			Content:   n.Content,
			Published: n.Published,
			Featured:  n.Featured,
		}
		if n.Excerpt != nil {
			view.Form.Excerpt = *n.Excerpt
		}
	}

	h.rs.render(w, r, page{name: "news_form", title: newsFormTitle(view.ID), area: "admin"}, view)
}

func (h *AdminHandler) SaveNews(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())

	var id *uuid.UUID
	if urlParam(r, "id") != "" {
		parsed, err := idParam(r, "id")
		if err != nil {
			h.rs.fail(w, r, "/admin/news", services.ErrNewsNotFound)
			return
		}
		id = &parsed
	}

	input, image, cleanup, err := h.readNewsInput(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer cleanup()

	n, created, err := h.news.Save(r.Context(), actor, id, input, image)
	if err != nil {
		h.rs.logWriteError(r, err)
		if middleware.WantsJSON(r) {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		view := newsFormView{
			ID:             id,
			Form:           input,
			UploadsEnabled: h.uploadsEnabled,
			Notice:         pages.Failure(err, knownErrors...),
		}
		// текущая обложка остаётся в форме, пока новая не сохранена
		if id != nil {
			if cur, err := h.news.GetForEdit(r.Context(), actor, *id); err == nil {
				view.ImageURL = cur.ImageURL
			}
		}
		h.rs.render(w, r, page{name: "news_form", title: newsFormTitle(id), area: "admin", status: statusForError(err)}, view)
		return
	}

	status, msg := http.StatusOK, "Article updated successfully!"
	if created {
		status, msg = http.StatusCreated, "Article created successfully!"
	}
	h.rs.done(w, r, status, jsonResponse{"news": n}, "/admin/news", pages.Success(msg))
}

// readNewsInput принимает JSON или multipart-форму с необязательным файлом image.
func (h *AdminHandler) readNewsInput(w http.ResponseWriter, r *http.Request) (services.NewsInput, *services.ImageUpload, func(), error) {
	var input services.NewsInput
	noop := func() {}

	if isJSONBody(r) {
		return input, nil, noop, readJSON(w, r, &input)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return input, nil, noop, fmt.Errorf("invalid form: %w", err)
	}
	input = services.NewsInput{
		Title:     r.FormValue("title"),
		Content:   r.FormValue("content"),
		Excerpt:   r.FormValue("excerpt"),
		Published: formBool(r, "published"),
		Featured:  formBool(r, "featured"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return input, nil, noop, nil
	case err != nil:
		return input, nil, noop, fmt.Errorf("invalid image: %w", err)
	}
	if header.Size == 0 {
		file.Close()
		return input, nil, noop, nil
	}

	contentType, err := imageContentType(file, header.Header.Get("Content-Type"))
	if err != nil {
		file.Close()
		return input, nil, noop, fmt.Errorf("invalid image: %w", err)
	}
	image := &services.ImageUpload{ContentType: contentType, Body: file, Size: header.Size}
	return input, image, func() { file.Close() }, nil
}

// imageContentType: Content-Type от браузера не всегда надёжен, при его отсутствии
// смотрим на первые байты и возвращаем файл в начало.
func imageContentType(file io.ReadSeeker, declared string) (string, error) {
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func newsFormTitle(id *uuid.UUID) string {
	if id != nil {
		return "Edit article"
	}
	return "New article"
}

// ---- tournaments ----

func (h *AdminHandler) Tournaments(w http.ResponseWriter, r *http.Request) {
	h.renderTournaments(w, r, http.StatusOK, nil, nil, nil)
}

// renderTournaments перечитывает всё: список, редактируемый турнир и
// регистрации выбранного. form != nil: повторный показ после ошибки.
func (h *AdminHandler) renderTournaments(w http.ResponseWriter, r *http.Request, status int, edit *uuid.UUID, form *services.TournamentInput, notice *pages.Notice) {
	actor := middleware.SessionFromContext(r.Context())
	if edit == nil {
		edit = optionalID(r, "edit")
	}
	selected := optionalID(r, "registrations")

	view := adminTournamentsView{
		Edit:     edit,
		Statuses: allStatuses,
		Selected: selected,
		Notice:   notice,
		Form:     services.TournamentInput{Status: models.StatusUpcoming},
	}

	loaders := []func(context.Context) error{
		func(ctx context.Context) (err error) {
			view.Tournaments, err = pages.Load(ctx, h.logger, "admin-tournaments", func(ctx context.Context) ([]services.TournamentCard, error) {
				return h.tournaments.ListForAdmin(ctx, actor)
			}, "No tournaments created yet.")
			return err
		},
	}
	if edit != nil && form == nil {
		loaders = append(loaders, func(ctx context.Context) error {
			detail, err := pages.LoadOne(ctx, h.logger, "edit-tournament", func(ctx context.Context) (*models.Tournament, error) {
				return h.tournaments.GetForEdit(ctx, actor, *edit)
			}, func(err error) bool { return errors.Is(err, services.ErrTournamentNotFound) })
			if err != nil {
				return err
			}
			switch {
			case detail.Item != nil:
				view.Form = tournamentForm(detail.Item)
			case detail.NotFound:
				view.Edit = nil
				view.Notice = pages.Failure(services.ErrTournamentNotFound, knownErrors...)
			default:
				view.Edit = nil
				view.Notice = detail.Notice
			}
			return nil
		})
	}
	if selected != nil {
		loaders = append(loaders, func(ctx context.Context) error {
			section, err := pages.Load(ctx, h.logger, "tournament-registrations", func(ctx context.Context) ([]models.Participant, error) {
				return h.tournaments.Registrations(ctx, actor, *selected)
			}, "No players registered")
			view.Registrations = &section
			return err
		})
	}

	err := pages.Concurrently(r.Context(), loaders...)
	if h.rs.discarded(r, err) {
		return
	}
	if form != nil {
		view.Form = *form
	}
	h.rs.render(w, r, page{name: "admin_tournaments", title: "Tournaments", area: "admin", status: status}, view)
}

func (h *AdminHandler) SaveTournament(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())

	var id *uuid.UUID
	if urlParam(r, "id") != "" {
		parsed, err := idParam(r, "id")
		if err != nil {
			h.rs.fail(w, r, "/admin/tournaments", services.ErrTournamentNotFound)
			return
		}
		id = &parsed
	}

	var input services.TournamentInput
	if isJSONBody(r) {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	} else {
		input = services.TournamentInput{
			Title:                r.FormValue("title"),
			Description:          r.FormValue("description"),
			GameType:             strings.TrimSpace(r.FormValue("game_type")),
			StartDate:            formTime(r, "start_date"),
			EndDate:              formTime(r, "end_date"),
			RegistrationDeadline: formTime(r, "registration_deadline"),
			MaxParticipants:      formInt(r, "max_participants"),
			Status:               models.TournamentStatus(r.FormValue("status")),
			Published:            formBool(r, "published"),
		}
	}

	t, created, err := h.tournaments.Save(r.Context(), actor, id, input)
	if err != nil {
		h.rs.logWriteError(r, err)
		if middleware.WantsJSON(r) {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		h.renderTournaments(w, r, statusForError(err), id, &input, pages.Failure(err, knownErrors...))
		return
	}

	status, msg := http.StatusOK, "Tournament updated successfully!"
	if created {
		status, msg = http.StatusCreated, "Tournament created successfully!"
	}
	h.rs.done(w, r, status, jsonResponse{"tournament": t}, "/admin/tournaments", pages.Success(msg))
}

func (h *AdminHandler) ToggleTournamentPublished(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.rs.fail(w, r, "/admin/tournaments", services.ErrTournamentNotFound)
		return
	}
	t, err := h.tournaments.TogglePublished(r.Context(), middleware.SessionFromContext(r.Context()), id)
	if err != nil {
		h.rs.fail(w, r, "/admin/tournaments", err)
		return
	}
	msg := "Tournament unpublished"
	if t.Published {
		msg = "Tournament published"
	}
	h.rs.done(w, r, http.StatusOK, jsonResponse{"tournament": t}, "/admin/tournaments", pages.Success(msg))
}

func (h *AdminHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.rs.fail(w, r, "/admin/tournaments", services.ErrTournamentNotFound)
		return
	}
	if !confirmed(r) {
		h.rs.confirm(w, r, confirmView{
			Heading: "Delete tournament",
			Message: "Deleting a tournament also removes its registrations and results. This action cannot be undone.",
			Action:  fmt.Sprintf("/admin/tournaments/%s/delete", id),
			Cancel:  "/admin/tournaments",
		})
		return
	}
	if err := h.tournaments.Delete(r.Context(), middleware.SessionFromContext(r.Context()), id); err != nil {
		h.rs.fail(w, r, "/admin/tournaments", err)
		return
	}
	h.rs.done(w, r, http.StatusOK, jsonResponse{"message": "tournament deleted"}, "/admin/tournaments", pages.Success("Tournament deleted"))
}

func tournamentForm(t *models.Tournament) services.TournamentInput {
	form := services.TournamentInput{
		Title:                t.Title,
		GameType:             t.GameType,
		StartDate:            t.StartDate,
		EndDate:              t.EndDate,
		RegistrationDeadline: t.RegistrationDeadline,
		MaxParticipants:      t.MaxParticipants,
		Status:               t.Status,
		Published:            t.Published,
	}
	if t.Description != nil {
		form.Description = *t.Description
	}
	return form
}

// formTime: пустое или кривое значение даёт нулевое время, дальше его
// отловит проверка обязательных полей.
func formTime(r *http.Request, name string) time.Time {
	t, err := time.ParseInLocation(formDateTimeLayout, strings.TrimSpace(r.FormValue(name)), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ---- players ----

func (h *AdminHandler) Players(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	selected := optionalID(r, "player")

	view := adminPlayersView{Search: search, Selected: selected}
	loaders := []func(context.Context) error{
		func(ctx context.Context) (err error) {
			view.Players, err = pages.Load(ctx, h.logger, "players", func(ctx context.Context) ([]models.Profile, error) {
				return h.profiles.ListPlayers(ctx, actor, search)
			}, "No players found.")
			return err
		},
	}
	if selected != nil {
		loaders = append(loaders, func(ctx context.Context) error {
			section, err := pages.Load(ctx, h.logger, "player-history", func(ctx context.Context) ([]models.Participant, error) {
				return h.profiles.PlayerHistory(ctx, actor, *selected)
			}, "No tournament participation yet.")
			view.History = &section
			return err
		})
	}

	err := pages.Concurrently(r.Context(), loaders...)
	if h.rs.discarded(r, err) {
		return
	}
	h.rs.render(w, r, page{name: "admin_players", title: "Players", area: "admin"}, view)
}

func (h *AdminHandler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.rs.fail(w, r, "/admin/players", services.ErrPlayerNotFound)
		return
	}
	if !confirmed(r) {
		h.rs.confirm(w, r, confirmView{
			Heading: "Delete player",
			Message: "Deleting a player removes their profile, registrations and results. This action cannot be undone.",
			Action:  fmt.Sprintf("/admin/players/%s/delete", id),
			Cancel:  "/admin/players",
		})
		return
	}
	if err := h.profiles.DeletePlayer(r.Context(), middleware.SessionFromContext(r.Context()), id); err != nil {
		h.rs.fail(w, r, "/admin/players", err)
		return
	}
	h.rs.done(w, r, http.StatusOK, jsonResponse{"message": "player deleted"}, "/admin/players", pages.Success("Player deleted"))
}

// ---- results ----

// Results: сначала список турниров, результаты и участники только после выбора.
func (h *AdminHandler) Results(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	selected := optionalID(r, "tournament")
	view := adminResultsView{Selected: selected}

	var err error
	view.Tournaments, err = pages.Load(r.Context(), h.logger, "results-tournaments", func(ctx context.Context) ([]models.Tournament, error) {
		return h.leaderboard.Tournaments(ctx, actor)
	}, "No tournaments available at the moment. Check back later!")
	if h.rs.discarded(r, err) {
		return
	}

	if selected != nil {
		err = pages.Concurrently(r.Context(),
			func(ctx context.Context) error {
				section, err := pages.Load(ctx, h.logger, "results", func(ctx context.Context) ([]models.Result, error) {
					return h.leaderboard.Results(ctx, actor, *selected)
				}, "No results found for this tournament.")
				view.Results = &section
				return err
			},
			func(ctx context.Context) error {
				section, err := pages.Load(ctx, h.logger, "results-participants", func(ctx context.Context) ([]models.Participant, error) {
					return h.tournaments.Registrations(ctx, actor, *selected)
				}, "")
				view.Participants = section.Items
				if section.Notice != nil {
					view.Notice = section.Notice
				}
				return err
			},
		)
		if h.rs.discarded(r, err) {
			return
		}
	}

	h.rs.render(w, r, page{name: "admin_results", title: "Leaderboard", area: "admin"}, view)
}

// formRank: пустое поле означает "не указано", нечисловое значение
// приходит в сервис как 0 и отклоняется там как неверное место.
func formRank(r *http.Request) *int {
	raw := strings.TrimSpace(r.FormValue("rank"))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		n = 0
	}
	return &n
}

func (h *AdminHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())

	var input services.ResultInput
	if isJSONBody(r) {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	} else {
		input.TournamentID, _ = uuid.Parse(r.FormValue("tournament_id"))
		input.PlayerID, _ = uuid.Parse(r.FormValue("player_id"))
		input.Rank = formRank(r)
		input.Points = formInt(r, "points")
	}

	back := "/admin/results"
	if input.TournamentID != uuid.Nil {
		back += "?tournament=" + url.QueryEscape(input.TournamentID.String())
	}

	res, err := h.leaderboard.Record(r.Context(), actor, input)
	if err != nil {
		h.rs.fail(w, r, back, err)
		return
	}
	h.rs.done(w, r, http.StatusCreated, jsonResponse{"result": res}, back, pages.Success("Result saved"))
}
