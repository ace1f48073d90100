package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/config"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/database"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/events"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/metrics"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/realtime"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/repository"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/server"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENVIRONMENT") == "" || os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	location, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening database")
	}
	defer db.Close()

	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("running migrations")
	}

	m := metrics.New()
	hub := realtime.NewHub(logger, m)
	defer hub.Close()
	bus := events.NewBus(m)

	client, err := backend.New(db, hub, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating backend client")
	}

	deps := services.Dependencies{
		Client:   client,
		Sessions: services.ContextSessions{},
		Logger:   logger,
		Location: location,
	}
	profiles := services.NewProfileService(deps)

	users := repository.NewUserRepository(db)
	accounts, err := users.Count(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("counting accounts")
	}

	authService, err := services.NewAuthService(ctx, cfg, users, profiles, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating auth service")
	}

	srv := server.New(cfg, server.Services{
		Auth:     authService,
		Tasks:    services.NewTaskService(deps),
		Projects: services.NewProjectService(deps),
		Calendar: services.NewCalendarService(deps),
		Activity: services.NewActivityService(deps),
		Focus:    services.NewFocusService(deps),
		Profiles: profiles,
	}, hub, bus, m, logger)

	logger.Info().
		Str("environment", cfg.Environment).
		Str("timezone", location.String()).
		Bool("oidc_enabled", cfg.OIDCEnabled()).
		Int("accounts", accounts).
		Msg("starting curiosity manager")

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
