package routes

import (
	"net/http"

	"github.com/Dosada05/esports-hub/docs"
	"github.com/Dosada05/esports-hub/handlers"
	"github.com/Dosada05/esports-hub/middleware"
	"github.com/Dosada05/esports-hub/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Public    *handlers.PublicHandler
	Auth      *handlers.AuthHandler
	Dashboard *handlers.DashboardHandler
	Admin     *handlers.AdminHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, sessions *middleware.SessionProvider, h Handlers, allowedOrigins []string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	crossOrigin := cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	router.Group(func(r chi.Router) {
		r.Use(crossOrigin)
		r.Get("/api/openapi.json", docs.Handler)
		r.Get("/ws/{room}", h.WebSocket.ServeWs)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/api/openapi.json")))

	router.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		// Публичные страницы
		r.Get("/", h.Public.Home)
		r.Get("/news", h.Public.NewsList)
		r.Get("/news/{id}", h.Public.NewsDetail)
		r.Get("/tournaments", h.Public.Tournaments)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/", h.Auth.Page)
			r.Post("/signin", h.Auth.SignIn)
			r.Post("/signup", h.Auth.SignUp)
			r.Post("/signout", h.Auth.SignOut)
		})

		// Кабинет игрока
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(middleware.RequireSession)

			r.Get("/", h.Dashboard.Overview)
			r.Get("/profile", h.Dashboard.Profile)
			r.Post("/profile", h.Dashboard.UpdateProfile)
			r.Get("/tournaments", h.Dashboard.Tournaments)
			r.Post("/tournaments/{id}/register", h.Dashboard.Register)
			r.Get("/registrations", h.Dashboard.Registrations)
			r.Get("/results", h.Dashboard.Results)
			r.Get("/news", h.Public.NewsList)
		})

		// Консоль администратора
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Use(middleware.RequireAdmin)

			r.Get("/", h.Admin.Overview)

			r.Get("/news", h.Admin.NewsList)
			r.Post("/news/{id}/publish", h.Admin.ToggleNewsPublished)
			r.Post("/news/{id}/feature", h.Admin.ToggleNewsFeatured)
			r.Get("/news/{id}/delete", h.Admin.DeleteNews)
			r.Post("/news/{id}/delete", h.Admin.DeleteNews)

			r.Get("/create", h.Admin.NewsForm)
			r.Post("/create", h.Admin.SaveNews)
			r.Get("/create/{id}", h.Admin.NewsForm)
			r.Post("/create/{id}", h.Admin.SaveNews)

			r.Get("/tournaments", h.Admin.Tournaments)
			r.Post("/tournaments", h.Admin.SaveTournament)
			r.Post("/tournaments/{id}", h.Admin.SaveTournament)
			r.Post("/tournaments/{id}/publish", h.Admin.ToggleTournamentPublished)
			r.Get("/tournaments/{id}/delete", h.Admin.DeleteTournament)
			r.Post("/tournaments/{id}/delete", h.Admin.DeleteTournament)

			r.Get("/players", h.Admin.Players)
			r.Get("/players/{id}/delete", h.Admin.DeletePlayer)
			r.Post("/players/{id}/delete", h.Admin.DeletePlayer)

			r.Get("/results", h.Admin.Results)
			r.Post("/results", h.Admin.RecordResult)
		})
	})

	// Всё неизвестное уводим на главную.
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}
