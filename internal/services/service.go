package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New()

func validateInput(input any) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Result reports the outcome of an operation whose callers prefer a value over
// an error.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Dependencies are shared by the entity services.
type Dependencies struct {
	Client   *backend.Client
	Sessions SessionSource
	Logger   zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// Location defines the calendar day. Defaults to UTC.
	Location *time.Location
}

type entityService struct {
	client   *backend.Client
	sessions SessionSource
	logger   zerolog.Logger
	now      func() time.Time
	location *time.Location
	table    string
}

func newEntityService(deps Dependencies, table string) entityService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	return entityService{
		client:   deps.Client,
		sessions: deps.Sessions,
		logger:   deps.Logger.With().Str("table", table).Logger(),
		now:      now,
		location: location,
		table:    table,
	}
}

func (service entityService) session(ctx context.Context, op string) (Session, error) {
	session, err := service.sessions.Current(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// fail logs a backend failure with its context and wraps it for the caller.
func (service entityService) fail(op string, session Session, id string, err error) error {
	level := zerolog.ErrorLevel
	if backend.IsNotFound(err) {
		level = zerolog.DebugLevel
	}
	event := service.logger.WithLevel(level).Err(err).Str("op", op).Str("user_id", session.UserID)
	if id != "" {
		event = event.Str("id", id)
	}
	event.Msg("backend operation failed")
	return fmt.Errorf("%s: %w", op, err)
}

func (service entityService) timestamp() time.Time {
	return service.now().UTC()
}

func (service entityService) today() time.Time {
	now := service.now().In(service.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, service.location)
}

func (service entityService) owned(session Session) *backend.Query {
	return service.client.From(service.table).Eq(backend.OwnerColumn, session.UserID)
}

func (service entityService) ownedByID(query *backend.Query, session Session, id string) *backend.Query {
	return query.Eq("id", id).Eq(backend.OwnerColumn, session.UserID)
}

func decodeRows[T any](rows []backend.Row, fromRow func(backend.Row) (T, error)) ([]T, error) {
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		item, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func timestampValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return backend.FormatTimestamp(*t)
}

// optional turns a nil pointer into a NULL column value.
func optional[T any](value *T) any {
	if value == nil {
		return nil
	}
	return *value
}

func nonEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func emptyToNil(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}
