package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/config"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/events"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/handlers"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/metrics"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/middleware"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/realtime"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// Services are the application services the HTTP surface exposes.
type Services struct {
	Auth     *services.AuthService
	Tasks    *services.TaskService
	Projects *services.ProjectService
	Calendar *services.CalendarService
	Activity *services.ActivityService
	Focus    *services.FocusService
	Profiles *services.ProfileService
}

type Server struct {
	router *chi.Mux
	config config.Config
	logger zerolog.Logger
}

func New(cfg config.Config, svc Services, hub *realtime.Hub, bus *events.Bus, m *metrics.Metrics, logger zerolog.Logger) *Server {
	authHandler := handlers.NewAuthHandler(svc.Auth, logger)
	taskHandler := handlers.NewTaskHandler(svc.Tasks, bus, logger)
	projectHandler := handlers.NewProjectHandler(svc.Projects, logger)
	calendarHandler := handlers.NewCalendarHandler(svc.Calendar, logger)
	activityHandler := handlers.NewActivityHandler(svc.Activity, logger)
	focusHandler := handlers.NewFocusHandler(svc.Focus, logger)
	profileHandler := handlers.NewProfileHandler(svc.Profiles, logger)
	realtimeHandler := handlers.NewRealtimeHandler(hub, bus, svc.Tasks, svc.Activity, logger)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(logger, m))
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", m.Handler())

	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/signout", authHandler.SignOut)
		r.Get("/session", authHandler.Session)
		r.Get("/oidc/login", authHandler.OIDCLogin)
		r.Get("/oidc/callback", authHandler.OIDCCallback)
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAuth(svc.Auth))

		r.Get("/tasks", taskHandler.List)
		r.Post("/tasks", taskHandler.Create)
		r.Get("/tasks/{id}", taskHandler.Get)
		r.Patch("/tasks/{id}", taskHandler.Update)
		r.Delete("/tasks/{id}", taskHandler.Delete)

		r.Get("/projects", projectHandler.List)
		r.Post("/projects", projectHandler.Create)
		r.Get("/projects/{id}", projectHandler.Get)
		r.Patch("/projects/{id}", projectHandler.Update)
		r.Delete("/projects/{id}", projectHandler.Delete)
		r.Get("/projects/{id}/tasks", projectHandler.TaskIDs)

		r.Get("/calendar/events", calendarHandler.List)
		r.Post("/calendar/events", calendarHandler.Create)
		r.Get("/calendar/events/{id}", calendarHandler.Get)
		r.Patch("/calendar/events/{id}", calendarHandler.Update)
		r.Delete("/calendar/events/{id}", calendarHandler.Delete)
		r.Post("/calendar/events/{id}/toggle", calendarHandler.Toggle)
		r.Get("/calendar.ics", calendarHandler.Export)
		r.Post("/calendar/import", calendarHandler.Import)

		r.Get("/activity", activityHandler.List)
		r.Post("/activity", activityHandler.Record)
		r.Get("/activity/daily", activityHandler.Daily)
		r.Get("/activity/{id}", activityHandler.Get)
		r.Patch("/activity/{id}", activityHandler.Update)
		r.Delete("/activity/{id}", activityHandler.Delete)

		r.Get("/focus/sessions", focusHandler.ListSessions)
		r.Post("/focus/sessions", focusHandler.CreateSession)
		r.Get("/focus/sessions/{id}", focusHandler.GetSession)
		r.Patch("/focus/sessions/{id}", focusHandler.UpdateSession)
		r.Delete("/focus/sessions/{id}", focusHandler.DeleteSession)
		r.Get("/focus/settings", focusHandler.GetSettings)
		r.Patch("/focus/settings", focusHandler.UpdateSettings)
		r.Get("/focus/streak", focusHandler.Streak)
		r.Get("/focus/today", focusHandler.Today)

		r.Get("/profile", profileHandler.Get)
		r.Patch("/profile", profileHandler.Update)

		r.Get("/realtime", realtimeHandler.Changes)
		r.Get("/live/activity", realtimeHandler.Activity)
		r.Get("/live/tasks", realtimeHandler.Tasks)
	})

	return &Server{
		router: router,
		config: cfg,
		logger: logger,
	}
}

func (server *Server) Handler() http.Handler {
	return server.router
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (server *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + server.config.Port,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		server.logger.Info().Str("address", httpServer.Addr).Msg("starting server")
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	server.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
