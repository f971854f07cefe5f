package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/esports-hub/middleware"
	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/services"
)

type dashboardView struct {
	Stats       pages.Detail[models.PlayerStats]       `json:"stats"`
	Tournaments pages.Section[services.TournamentCard] `json:"tournaments"`
	News        pages.Section[models.News]             `json:"news"`
}

type profileView struct {
	Email   string                `json:"email"`
	Profile *models.Profile       `json:"profile,omitempty"`
	Form    services.ProfileInput `json:"-"`
	Notice  *pages.Notice         `json:"notice,omitempty"`
}

type playerTournamentsView struct {
	Tournaments pages.Section[services.TournamentCard] `json:"tournaments"`
	Notice      *pages.Notice                          `json:"notice,omitempty"`
}

type registrationsView struct {
	Registrations pages.Section[models.Participant] `json:"registrations"`
}

type resultsView struct {
	Results pages.Section[models.Result] `json:"results"`
}

// DashboardHandler: кабинет игрока. Все маршруты за RequireSession.
type DashboardHandler struct {
	dashboard     services.DashboardService
	tournaments   services.TournamentService
	news          services.NewsService
	profiles      services.ProfileService
	registrations services.RegistrationService
	leaderboard   services.LeaderboardService
	rs            *Responder
	logger        *slog.Logger
}

func NewDashboardHandler(
	dashboard services.DashboardService,
	tournaments services.TournamentService,
	news services.NewsService,
	profiles services.ProfileService,
	registrations services.RegistrationService,
	leaderboard services.LeaderboardService,
	rs *Responder,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		dashboard:     dashboard,
		tournaments:   tournaments,
		news:          news,
		profiles:      profiles,
		registrations: registrations,
		leaderboard:   leaderboard,
		rs:            rs,
		logger:        logger,
	}
}

func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())

	var view dashboardView
	err := pages.Concurrently(r.Context(),
		func(ctx context.Context) (err error) {
			view.Stats, err = pages.LoadOne(ctx, h.logger, "player-stats", func(ctx context.Context) (*models.PlayerStats, error) {
				stats, err := h.dashboard.PlayerStats(ctx, actor)
				if err != nil {
					return nil, err
				}
				return &stats, nil
			}, func(error) bool { return false })
			return err
		},
		func(ctx context.Context) (err error) {
			view.Tournaments, err = pages.Load(ctx, h.logger, "latest-tournaments", func(ctx context.Context) ([]services.TournamentCard, error) {
				return h.tournaments.Latest(ctx, homeSectionSize)
			}, "No tournaments available at the moment. Check back later!")
			return err
		},
		func(ctx context.Context) (err error) {
			view.News, err = pages.Load(ctx, h.logger, "latest-news", func(ctx context.Context) ([]models.News, error) {
				return h.news.ListPublished(ctx, 0, homeSectionSize-1)
			}, "No news articles available at the moment.")
			return err
		},
	)
	if h.rs.discarded(r, err) {
		return
	}
	h.rs.render(w, r, page{name: "dashboard", title: "Dashboard", area: "dashboard"}, view)
}

func (h *DashboardHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	view := profileView{Email: actor.Email}

	profile, err := h.profiles.GetOwn(r.Context(), actor)
	switch {
	case err == nil:
		view.Profile = profile
		view.Form = profileForm(profile)
	case r.Context().Err() != nil:
		return
	case errors.Is(err, services.ErrProfileNotFound):
		// профиль создастся при первом сохранении
	default:
		h.logger.Error("failed to load profile", slog.String("user_id", actor.UserID.String()), slog.Any("error", err))
		view.Notice = pages.LoadFailed()
	}
	h.rs.render(w, r, page{name: "profile", title: "Profile", area: "dashboard"}, view)
}

func (h *DashboardHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())

	var input services.ProfileInput
	if isJSONBody(r) {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	} else {
		input = services.ProfileInput{
			Username: r.FormValue("username"),
			FullName: r.FormValue("full_name"),
			GameIDs:  r.FormValue("game_ids"),
		}
	}

	profile, err := h.profiles.UpdateOwn(r.Context(), actor, input)
	if err != nil {
		h.rs.logWriteError(r, err)
		if middleware.WantsJSON(r) {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		h.rs.render(w, r, page{name: "profile", title: "Profile", area: "dashboard", status: statusForError(err)}, profileView{
			Email:   actor.Email,
			Profile: actor.Profile,
			Form:    input,
			Notice:  pages.Failure(err, knownErrors...),
		})
		return
	}

	h.rs.done(w, r, http.StatusOK, jsonResponse{"profile": profile},
		"/dashboard/profile", pages.Success("Profile updated successfully!"))
}

func (h *DashboardHandler) Tournaments(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	section, err := pages.Load(r.Context(), h.logger, "player-tournaments", func(ctx context.Context) ([]services.TournamentCard, error) {
		return h.registrations.Cards(ctx, actor)
	}, "No tournaments available at the moment. Check back later!")
	if h.rs.discarded(r, err) {
		return
	}
	h.rs.render(w, r, page{name: "player_tournaments", title: "Tournaments", area: "dashboard"},
		playerTournamentsView{Tournaments: section})
}

func (h *DashboardHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		h.rs.fail(w, r, "/dashboard/tournaments", services.ErrTournamentNotFound)
		return
	}

	participant, err := h.registrations.Register(r.Context(), actor, id)
	if err != nil {
		h.rs.fail(w, r, "/dashboard/tournaments", err)
		return
	}

	msg := "Successfully registered for the tournament!"
	if participant.Tournament != nil {
		msg = fmt.Sprintf("Successfully registered for %s!", participant.Tournament.Title)
	}
	h.rs.done(w, r, http.StatusCreated, jsonResponse{"registration": participant},
		"/dashboard/tournaments", pages.Success(msg))
}

func (h *DashboardHandler) Registrations(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	section, err := pages.Load(r.Context(), h.logger, "my-registrations", func(ctx context.Context) ([]models.Participant, error) {
		return h.registrations.MyRegistrations(ctx, actor)
	}, "No registrations yet")
	if h.rs.discarded(r, err) {
		return
	}
	h.rs.render(w, r, page{name: "registrations", title: "My registrations", area: "dashboard"},
		registrationsView{Registrations: section})
}

func (h *DashboardHandler) Results(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionFromContext(r.Context())
	section, err := pages.Load(r.Context(), h.logger, "my-results", func(ctx context.Context) ([]models.Result, error) {
		return h.leaderboard.MyResults(ctx, actor)
	}, "No results yet")
	if h.rs.discarded(r, err) {
		return
	}
	h.rs.render(w, r, page{name: "results", title: "My results", area: "dashboard"}, resultsView{Results: section})
}

func profileForm(p *models.Profile) services.ProfileInput {
	form := services.ProfileInput{Username: p.Username, GameIDs: strings.Join(p.GameIDs, ", ")}
	if p.FullName != nil {
		form.FullName = *p.FullName
	}
	return form
}
