package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/esports-hub/middleware"
	"github.com/Dosada05/esports-hub/models"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/services"
)

const (
	homeSectionSize = 3
	newsPageSize    = 9
)

type homeView struct {
	Featured pages.Section[models.News]             `json:"featured"`
	Upcoming pages.Section[services.TournamentCard] `json:"upcoming"`
}

type newsListView struct {
	News     pages.Section[models.News] `json:"news"`
	Page     int                        `json:"page"`
	BasePath string                     `json:"-"`
}

func (v newsListView) Failed() bool { return v.News.Failed() }

type tournamentsView struct {
	Statuses    []models.TournamentStatus              `json:"-"`
	Status      string                                 `json:"status,omitempty"`
	GameType    string                                 `json:"game_type,omitempty"`
	GameTypes   []string                               `json:"game_types"`
	Tournaments pages.Section[services.TournamentCard] `json:"tournaments"`
}

var allStatuses = []models.TournamentStatus{models.StatusUpcoming, models.StatusOngoing, models.StatusFinished}

// PublicHandler: страницы, доступные без входа.
type PublicHandler struct {
	news        services.NewsService
	tournaments services.TournamentService
	rs          *Responder
	logger      *slog.Logger
}

func NewPublicHandler(news services.NewsService, tournaments services.TournamentService, rs *Responder, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{news: news, tournaments: tournaments, rs: rs, logger: logger}
}

// Home: избранные новости и ближайшие турниры грузятся параллельно,
// у каждого блока своё пустое состояние.
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	var view homeView
	err := pages.Concurrently(r.Context(),
		func(ctx context.Context) (err error) {
			view.Featured, err = pages.Load(ctx, h.logger, "featured-news", func(ctx context.Context) ([]models.News, error) {
				return h.news.Featured(ctx, homeSectionSize)
			}, "No featured news available.")
			return err
		},
		func(ctx context.Context) (err error) {
			view.Upcoming, err = pages.Load(ctx, h.logger, "upcoming-tournaments", func(ctx context.Context) ([]services.TournamentCard, error) {
				return h.tournaments.Upcoming(ctx, homeSectionSize)
			}, "No upcoming tournaments.")
			return err
		},
	)
	if h.rs.discarded(r, err) {
		return
	}
	h.rs.render(w, r, page{name: "home", area: "public"}, view)
}

// NewsList обслуживает /news и /dashboard/news. JSON и фрагмент "load more"
// получают только страницу n, полная HTML-страница: первые n страниц.
func (h *PublicHandler) NewsList(w http.ResponseWriter, r *http.Request) {
	n := pageParam(r)
	const empty = "No news articles available at the moment."

	var (
		section pages.Section[models.News]
		err     error
	)
	appending := middleware.WantsJSON(r) || wantsFragment(r)
	if appending {
		section, err = pages.LoadPage(r.Context(), h.logger, "news", pages.Window{Page: n, Size: newsPageSize}, h.news.ListPublished, empty)
	} else {
		section, err = pages.Accumulate(r.Context(), h.logger, "news", n, newsPageSize, h.news.ListPublished, empty)
	}
	if h.rs.discarded(r, err) {
		return
	}

	view := newsListView{News: section, Page: n, BasePath: r.URL.Path}
	if wantsFragment(r) && !middleware.WantsJSON(r) {
		h.rs.fragment(w, r, "news_list", "news-page", view)
		return
	}
	h.rs.render(w, r, page{name: "news_list", title: "News", area: areaFor(r)}, view)
}

func (h *PublicHandler) NewsDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.rs.render(w, r, page{name: "news_detail", title: "Article not found", area: "public", status: http.StatusNotFound},
			pages.Detail[models.News]{NotFound: true})
		return
	}

	detail, err := pages.LoadOne(r.Context(), h.logger, "news-detail", func(ctx context.Context) (*models.News, error) {
		return h.news.GetPublished(ctx, id)
	}, func(err error) bool { return errors.Is(err, services.ErrNewsNotFound) })
	if h.rs.discarded(r, err) {
		return
	}

	p := page{name: "news_detail", area: "public"}
	switch {
	case detail.NotFound:
		p.status = http.StatusNotFound
		p.title = "Article not found"
	case detail.Item != nil:
		p.title = detail.Item.Title
	}
	h.rs.render(w, r, p, detail)
}

// Tournaments: фильтры необязательные; варианты игр берутся из уже
// полученных строк.
func (h *PublicHandler) Tournaments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.TournamentFilter{GameType: strings.TrimSpace(q.Get("game_type"))}
	if st := models.TournamentStatus(q.Get("status")); st.Valid() {
		filter.Status = st
	}

	empty := "Check back soon for new tournament announcements."
	if filter.Active() {
		empty = "Try adjusting your filters to see more tournaments."
	}
	section, err := pages.Load(r.Context(), h.logger, "tournaments", func(ctx context.Context) ([]services.TournamentCard, error) {
		return h.tournaments.ListPublic(ctx, filter)
	}, empty)
	if h.rs.discarded(r, err) {
		return
	}

	h.rs.render(w, r, page{name: "tournaments", title: "Tournaments", area: "public"}, tournamentsView{
		Statuses:    allStatuses,
		Status:      string(filter.Status),
		GameType:    filter.GameType,
		GameTypes:   services.GameTypes(section.Items),
		Tournaments: section,
	})
}

func areaFor(r *http.Request) string {
	if strings.HasPrefix(r.URL.Path, "/dashboard") {
		return "dashboard"
	}
	return "public"
}
