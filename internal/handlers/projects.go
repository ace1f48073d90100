package handlers

import (
	"net/http"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type ProjectHandler struct {
	projects *services.ProjectService
	logger   zerolog.Logger
}

func NewProjectHandler(projects *services.ProjectService, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

func (handler *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := services.ProjectFilter{
		CreatedAfter:  q.Time("createdAfter"),
		CreatedBefore: q.Time("createdBefore"),
	}
	if err := q.Err(); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	projects, err := handler.projects.List(r.Context(), filter)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (handler *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.NewProject
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	project, err := handler.projects.Create(r.Context(), input)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// Get includes the project's task ids when called with ?include=tasks.
func (handler *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	get := handler.projects.Get
	if r.URL.Query().Get("include") == "tasks" {
		get = handler.projects.WithTasks
	}

	project, err := get(r.Context(), id)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (handler *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update services.ProjectUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	project, err := handler.projects.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (handler *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.projects.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, handler.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *ProjectHandler) TaskIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := handler.projects.TaskIDs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}
