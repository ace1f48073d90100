package handlers

import (
	"net/http"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const defaultSummaryDays = 7

type ActivityHandler struct {
	activity *services.ActivityService
	logger   zerolog.Logger
}

func NewActivityHandler(activity *services.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

func (handler *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := services.ActivityFilter{From: q.Time("from"), To: q.Time("to")}
	if err := q.Err(); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	activity, err := handler.activity.List(r.Context(), filter)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (handler *ActivityHandler) Record(w http.ResponseWriter, r *http.Request) {
	var input services.NewActivity
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	activity, err := handler.activity.Record(r.Context(), input)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (handler *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	activity, err := handler.activity.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (handler *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update services.ActivityUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	activity, err := handler.activity.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (handler *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.activity.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, handler.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Daily serves ?start=&end= date ranges, or the last ?days= days ending today.
func (handler *ActivityHandler) Daily(w http.ResponseWriter, r *http.Request) {
	summaries, err := handler.daily(r)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (handler *ActivityHandler) daily(r *http.Request) ([]models.DailyActivitySummary, error) {
	q := newQuery(r)
	start, end := q.String("start"), q.String("end")
	if start != nil || end != nil {
		if start == nil || end == nil {
			return nil, errMissingRangeBound
		}
		return handler.activity.DailySummariesForDates(r.Context(), *start, *end)
	}

	days := defaultSummaryDays
	if requested := q.Int("days"); requested != nil {
		days = *requested
	}
	if err := q.Err(); err != nil {
		return nil, err
	}
	return handler.activity.RecentDailySummaries(r.Context(), days)
}
