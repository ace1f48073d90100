package handlers

import (
	"net/http"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/events"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type TaskHandler struct {
	tasks  *services.TaskService
	bus    *events.Bus
	logger zerolog.Logger
}

func NewTaskHandler(tasks *services.TaskService, bus *events.Bus, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, bus: bus, logger: logger}
}

func (handler *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := services.TaskFilter{
		Status:        typed[models.TaskStatus](q.String("status")),
		Priority:      typed[models.Level](q.String("priority")),
		EnergyLevel:   typed[models.Level](q.String("energyLevel")),
		IsQuickWin:    q.Bool("isQuickWin"),
		ProjectID:     q.String("projectId"),
		CreatedAfter:  q.Time("createdAfter"),
		CreatedBefore: q.Time("createdBefore"),
	}
	if err := q.Err(); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	tasks, err := handler.tasks.List(r.Context(), filter)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create stores the task and announces it on the task-created topic.
func (handler *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.NewTask
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	task, err := handler.tasks.Create(r.Context(), input)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	handler.bus.TaskCreated.Publish(task)
	writeJSON(w, http.StatusCreated, task)
}

func (handler *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := handler.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (handler *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update services.TaskUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	task, err := handler.tasks.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (handler *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, handler.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
