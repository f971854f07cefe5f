package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/esports-hub/config"
	"github.com/Dosada05/esports-hub/db"
	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/handlers"
	"github.com/Dosada05/esports-hub/middleware"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/realtime"
	"github.com/Dosada05/esports-hub/repositories"
	api "github.com/Dosada05/esports-hub/routes"
	"github.com/Dosada05/esports-hub/services"
	"github.com/Dosada05/esports-hub/storage"
	"github.com/Dosada05/esports-hub/web"
	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
)

func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if format == "text" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: lvl, TimeFormat: time.Kitchen}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Bool("uploads", cfg.UploadsEnabled()))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.BackendURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx, dbConn)
		cancel()
		if err != nil {
			logger.Error("failed to apply schema", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("schema applied")
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	gw := gateway.New(dbConn, gateway.DefaultOptions(cfg.BackendAPIKey), logger)

	// Инициализация загрузчика файлов (Cloudflare R2). Без настроек загрузка обложек отключена.
	var uploader storage.FileUploader
	if cfg.UploadsEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(appCtx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	}

	// Инициализация WebSocket Hub
	hub := realtime.NewHub(logger)
	go hub.Run(appCtx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	profileRepo := repositories.NewPostgresProfileRepository(gw)
	newsRepo := repositories.NewPostgresNewsRepository(gw)
	tournamentRepo := repositories.NewPostgresTournamentRepository(gw)
	participantRepo := repositories.NewPostgresParticipantRepository(gw)
	resultRepo := repositories.NewPostgresResultRepository(gw)

	// Инициализация сервисов
	guard := pages.NewGuard()
	authService := services.NewAuthService(gw.Auth, profileRepo, logger)
	newsService := services.NewNewsService(newsRepo, uploader, guard, hub, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, participantRepo, guard, hub, logger)
	registrationService := services.NewRegistrationService(tournamentRepo, participantRepo, guard, hub, logger)
	leaderboardService := services.NewLeaderboardService(tournamentRepo, resultRepo, guard)
	profileService := services.NewProfileService(profileRepo, participantRepo, guard, logger)
	dashboardService := services.NewDashboardService(participantRepo, resultRepo, newsRepo)
	adminService := services.NewAdminService(profileRepo, newsRepo, tournamentRepo, participantRepo)
	logger.Info("Services initialized")

	// Планировщик согласования статусов турниров с датами
	scheduler, err := services.StartStatusSync(tournamentService, cfg.StatusSyncInterval, logger)
	if err != nil {
		logger.Error("failed to start status sync", slog.Any("error", err))
		os.Exit(1)
	}

	templates, err := web.Parse()
	if err != nil {
		logger.Error("failed to parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация обработчиков HTTP
	sessions := middleware.NewSessionProvider(gw.Auth, profileRepo, logger)
	rs := handlers.NewResponder(templates, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, sessions, api.Handlers{
		Public:    handlers.NewPublicHandler(newsService, tournamentService, rs, logger),
		Auth:      handlers.NewAuthHandler(authService, gw.Auth, sessions, rs, logger),
		Dashboard: handlers.NewDashboardHandler(dashboardService, tournamentService, newsService, profileService, registrationService, leaderboardService, rs, logger),
		Admin:     handlers.NewAdminHandler(adminService, newsService, tournamentService, profileService, leaderboardService, cfg.UploadsEnabled(), rs, logger),
		WebSocket: handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins, logger),
	}, cfg.CORSAllowedOrigins)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	if err := scheduler.Shutdown(); err != nil {
		logger.Error("failed to stop scheduler", slog.Any("error", err))
	}
	stopApp()
	logger.Info("application exited")
	if exitCode != 0 {
		// os.Exit пропускает defer, поэтому соединение закрываем сами.
		_ = dbConn.Close()
		os.Exit(exitCode)
	}
}
