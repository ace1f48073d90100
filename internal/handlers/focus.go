package handlers

import (
	"net/http"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type FocusHandler struct {
	focus  *services.FocusService
	logger zerolog.Logger
}

func NewFocusHandler(focus *services.FocusService, logger zerolog.Logger) *FocusHandler {
	return &FocusHandler{focus: focus, logger: logger}
}

func (handler *FocusHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := services.FocusSessionFilter{
		Mode:          typed[models.FocusMode](q.String("mode")),
		Completed:     q.Bool("completed"),
		CreatedAfter:  q.Time("createdAfter"),
		CreatedBefore: q.Time("createdBefore"),
	}
	if err := q.Err(); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	sessions, err := handler.focus.List(r.Context(), filter)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (handler *FocusHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var input services.NewFocusSession
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	focusSession, err := handler.focus.Create(r.Context(), input)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, focusSession)
}

func (handler *FocusHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	focusSession, err := handler.focus.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, focusSession)
}

func (handler *FocusHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var update services.FocusSessionUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	focusSession, err := handler.focus.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, focusSession)
}

func (handler *FocusHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := handler.focus.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, handler.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *FocusHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := handler.focus.GetSettings(r.Context())
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (handler *FocusHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update services.FocusSettingsUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	settings, err := handler.focus.UpdateSettings(r.Context(), update)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (handler *FocusHandler) Streak(w http.ResponseWriter, r *http.Request) {
	streak, err := handler.focus.GetStreak(r.Context())
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

func (handler *FocusHandler) Today(w http.ResponseWriter, r *http.Request) {
	stats, err := handler.focus.TodayStats(r.Context())
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
