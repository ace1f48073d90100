package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

var errMissingRangeBound = fmt.Errorf("%w: start and end must be given together", services.ErrInvalidInput)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps service and backend errors onto HTTP statuses. Only
// unexpected failures are logged; the services already logged the backend
// side.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrInvalidToken):
		writeMessage(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		writeMessage(w, http.StatusConflict, err.Error())
	case backend.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, "not found")
	case backend.HasCode(err, backend.CodeConstraintViolation):
		writeMessage(w, http.StatusConflict, "conflicts with existing data")
	case backend.HasCode(err, backend.CodeInvalidQuery):
		writeMessage(w, http.StatusBadRequest, "invalid query")
	default:
		logger.Error().Err(err).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a JSON body into target, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: decoding body: %v", services.ErrInvalidInput, err)
	}
	return nil
}

// query reads optional query parameters, remembering the first malformed one.
type query struct {
	r   *http.Request
	err error
}

func newQuery(r *http.Request) *query {
	return &query{r: r}
}

func (q *query) String(name string) *string {
	value := q.r.URL.Query().Get(name)
	if value == "" {
		return nil
	}
	return &value
}

func (q *query) Bool(name string) *bool {
	value := q.String(name)
	if value == nil {
		return nil
	}
	parsed, err := strconv.ParseBool(*value)
	if err != nil {
		q.fail(name, *value)
		return nil
	}
	return &parsed
}

func (q *query) Int(name string) *int {
	value := q.String(name)
	if value == nil {
		return nil
	}
	parsed, err := strconv.Atoi(*value)
	if err != nil {
		q.fail(name, *value)
		return nil
	}
	return &parsed
}

// Time accepts RFC 3339 timestamps.
func (q *query) Time(name string) *time.Time {
	value := q.String(name)
	if value == nil {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		q.fail(name, *value)
		return nil
	}
	return &parsed
}

func (q *query) Err() error {
	return q.err
}

func (q *query) fail(name, value string) {
	if q.err == nil {
		q.err = fmt.Errorf("%w: query parameter %s=%q", services.ErrInvalidInput, name, value)
	}
}

func typed[T ~string](value *string) *T {
	if value == nil {
		return nil
	}
	converted := T(*value)
	return &converted
}
