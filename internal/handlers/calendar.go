package handlers

import (
	"net/http"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxICSUploadBytes = 5 << 20

type CalendarHandler struct {
	calendar   *services.CalendarService
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewCalendarHandler(calendar *services.CalendarService, logger zerolog.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendar:   calendar,
		httpClient: services.NewFeedClient(10 * time.Second),
		logger:     logger,
	}
}

func calendarFilter(r *http.Request) (services.CalendarFilter, error) {
	q := newQuery(r)
	filter := services.CalendarFilter{
		Type:        typed[models.EventType](q.String("type")),
		IsCompleted: q.Bool("isCompleted"),
		IsUrgent:    q.Bool("isUrgent"),
		From:        q.String("from"),
		To:          q.String("to"),
	}
	return filter, q.Err()
}

func (handler *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := calendarFilter(r)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}

	events, err := handler.calendar.List(r.Context(), filter)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (handler *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.NewCalendarEvent
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	event, err := handler.calendar.Create(r.Context(), input)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (handler *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := handler.calendar.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (handler *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update services.CalendarEventUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	event, err := handler.calendar.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (handler *CalendarHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	event, err := handler.calendar.ToggleComplete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (handler *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.calendar.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, handler.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := calendarFilter(r)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}

	document, err := handler.calendar.ExportICS(r.Context(), filter)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="curiosity-manager.ics"`)
	w.Write([]byte(document))
}

// Import reads an iCalendar document from the body, or downloads it when the
// url query parameter is given.
func (handler *CalendarHandler) Import(w http.ResponseWriter, r *http.Request) {
	var (
		events []models.CalendarEvent
		err    error
	)
	if url := r.URL.Query().Get("url"); url != "" {
		events, err = handler.calendar.ImportICSFromURL(r.Context(), handler.httpClient, url)
	} else {
		events, err = handler.calendar.ImportICS(r.Context(), http.MaxBytesReader(w, r.Body, maxICSUploadBytes))
	}
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	writeJSON(w, http.StatusCreated, events)
}
