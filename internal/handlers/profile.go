package handlers

import (
	"net/http"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/rs/zerolog"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	logger   zerolog.Logger
}

func NewProfileHandler(profiles *services.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

func (handler *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := handler.profiles.Get(r.Context())
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update answers with the Result object; a failed update is still a 200 unless
// the body could not be read.
func (handler *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update services.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeJSON(w, http.StatusBadRequest, services.Result{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, handler.profiles.UpdateProfile(r.Context(), update))
}
