package services

import (
	"context"
	"fmt"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
)

// TimeOfDayLayout is the format of CalendarEvent.Time.
const TimeOfDayLayout = "15:04"

type NewCalendarEvent struct {
	Title          string           `json:"title" validate:"required,max=500"`
	Type           models.EventType `json:"type" validate:"required,oneof=task appointment reminder break"`
	Date           string           `json:"date" validate:"required,datetime=2006-01-02"`
	Time           *string          `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	EnergyRequired models.Level     `json:"energyRequired,omitempty" validate:"omitempty,oneof=low medium high"`
	IsCompleted    bool             `json:"isCompleted"`
	IsUrgent       bool             `json:"isUrgent"`
	Duration       *int             `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Description    *string          `json:"description,omitempty"`
}

type CalendarEventUpdate struct {
	Title          *string           `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Type           *models.EventType `json:"type,omitempty" validate:"omitempty,oneof=task appointment reminder break"`
	Date           *string           `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time           *string           `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	EnergyRequired *models.Level     `json:"energyRequired,omitempty" validate:"omitempty,oneof=low medium high"`
	IsCompleted    *bool             `json:"isCompleted,omitempty"`
	IsUrgent       *bool             `json:"isUrgent,omitempty"`
	Duration       *int              `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Description    *string           `json:"description,omitempty"`
}

// CalendarFilter bounds are inclusive calendar days.
type CalendarFilter struct {
	Type        *models.EventType
	IsCompleted *bool
	IsUrgent    *bool
	From        *string `validate:"omitempty,datetime=2006-01-02"`
	To          *string `validate:"omitempty,datetime=2006-01-02"`
}

type CalendarService struct {
	entityService
}

func NewCalendarService(deps Dependencies) *CalendarService {
	return &CalendarService{entityService: newEntityService(deps, "calendar_events")}
}

func (service *CalendarService) Create(ctx context.Context, input NewCalendarEvent) (models.CalendarEvent, error) {
	session, err := service.session(ctx, "creating calendar event")
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if err := validateInput(input); err != nil {
		return models.CalendarEvent{}, fmt.Errorf("creating calendar event: %w", err)
	}
	return service.insert(ctx, session, input)
}

func (service *CalendarService) insert(ctx context.Context, session Session, input NewCalendarEvent) (models.CalendarEvent, error) {
	now := service.timestamp()
	event := models.CalendarEvent{
		UserID:         session.UserID,
		Title:          input.Title,
		Type:           input.Type,
		Date:           input.Date,
		Time:           emptyToNil(input.Time),
		EnergyRequired: input.EnergyRequired,
		IsCompleted:    input.IsCompleted,
		IsUrgent:       input.IsUrgent,
		Duration:       input.Duration,
		Description:    input.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if event.EnergyRequired == "" {
		event.EnergyRequired = models.LevelMedium
	}

	row, err := service.client.From(service.table).Insert(calendarEventToRow(event)).Single(ctx)
	if err != nil {
		return models.CalendarEvent{}, service.fail("creating calendar event", session, "", err)
	}
	return calendarEventFromRow(row)
}

func (service *CalendarService) Get(ctx context.Context, id string) (models.CalendarEvent, error) {
	session, err := service.session(ctx, "finding calendar event")
	if err != nil {
		return models.CalendarEvent{}, err
	}
	row, err := service.ownedByID(service.client.From(service.table), session, id).Single(ctx)
	if err != nil {
		return models.CalendarEvent{}, service.fail("finding calendar event", session, id, err)
	}
	return calendarEventFromRow(row)
}

func (service *CalendarService) Update(ctx context.Context, id string, update CalendarEventUpdate) (models.CalendarEvent, error) {
	session, err := service.session(ctx, "updating calendar event")
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if err := validateInput(update); err != nil {
		return models.CalendarEvent{}, fmt.Errorf("updating calendar event: %w", err)
	}

	row := backend.Row{"updated_at": backend.FormatTimestamp(service.timestamp())}
	if update.Title != nil {
		row["title"] = *update.Title
	}
	if update.Type != nil {
		row["type"] = string(*update.Type)
	}
	if update.Date != nil {
		row["date"] = *update.Date
	}
	if update.Time != nil {
		row["time"] = nonEmpty(*update.Time)
	}
	if update.EnergyRequired != nil {
		row["energy_required"] = string(*update.EnergyRequired)
	}
	if update.IsCompleted != nil {
		row["is_completed"] = *update.IsCompleted
	}
	if update.IsUrgent != nil {
		row["is_urgent"] = *update.IsUrgent
	}
	if update.Duration != nil {
		row["duration"] = *update.Duration
	}
	if update.Description != nil {
		row["description"] = *update.Description
	}

	updated, err := service.ownedByID(service.client.From(service.table).Update(row), session, id).Single(ctx)
	if err != nil {
		return models.CalendarEvent{}, service.fail("updating calendar event", session, id, err)
	}
	return calendarEventFromRow(updated)
}

// ToggleComplete flips IsCompleted and returns the stored event.
func (service *CalendarService) ToggleComplete(ctx context.Context, id string) (models.CalendarEvent, error) {
	event, err := service.Get(ctx, id)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	completed := !event.IsCompleted
	return service.Update(ctx, id, CalendarEventUpdate{IsCompleted: &completed})
}

// List returns the caller's events ordered by day, then time of day. Events
// without a time sort first within their day.
func (service *CalendarService) List(ctx context.Context, filter CalendarFilter) ([]models.CalendarEvent, error) {
	session, err := service.session(ctx, "listing calendar events")
	if err != nil {
		return nil, err
	}
	if err := validateInput(filter); err != nil {
		return nil, fmt.Errorf("listing calendar events: %w", err)
	}

	query := service.owned(session)
	if filter.Type != nil {
		query = query.Eq("type", *filter.Type)
	}
	if filter.IsCompleted != nil {
		query = query.Eq("is_completed", *filter.IsCompleted)
	}
	if filter.IsUrgent != nil {
		query = query.Eq("is_urgent", *filter.IsUrgent)
	}
	if filter.From != nil {
		query = query.Gte("date", *filter.From)
	}
	if filter.To != nil {
		query = query.Lte("date", *filter.To)
	}

	rows, err := query.
		Order("date", backend.Ascending).
		Order("time", backend.Ascending).
		Execute(ctx)
	if err != nil {
		return nil, service.fail("listing calendar events", session, "", err)
	}
	return decodeRows(rows, calendarEventFromRow)
}

func (service *CalendarService) Delete(ctx context.Context, id string) error {
	session, err := service.session(ctx, "deleting calendar event")
	if err != nil {
		return err
	}
	if _, err := service.ownedByID(service.client.From(service.table).Delete(), session, id).Execute(ctx); err != nil {
		return service.fail("deleting calendar event", session, id, err)
	}
	return nil
}

func calendarEventFromRow(row backend.Row) (models.CalendarEvent, error) {
	decoder := backend.NewDecoder(row)
	event := models.CalendarEvent{
		ID:             decoder.String("id"),
		UserID:         decoder.String("user_id"),
		Title:          decoder.String("title"),
		Type:           models.EventType(decoder.String("type")),
		Date:           decoder.String("date"),
		Time:           decoder.OptionalString("time"),
		EnergyRequired: models.Level(decoder.String("energy_required")),
		IsCompleted:    decoder.Bool("is_completed"),
		IsUrgent:       decoder.Bool("is_urgent"),
		Duration:       decoder.OptionalInt("duration"),
		Description:    decoder.OptionalString("description"),
		CreatedAt:      decoder.Time("created_at"),
		UpdatedAt:      decoder.Time("updated_at"),
	}
	if err := decoder.Err(); err != nil {
		return models.CalendarEvent{}, fmt.Errorf("decoding calendar event: %w", err)
	}
	return event, nil
}

func calendarEventToRow(event models.CalendarEvent) backend.Row {
	return backend.Row{
		"id":              event.ID,
		"user_id":         event.UserID,
		"title":           event.Title,
		"type":            string(event.Type),
		"date":            event.Date,
		"time":            optional(event.Time),
		"energy_required": string(event.EnergyRequired),
		"is_completed":    event.IsCompleted,
		"is_urgent":       event.IsUrgent,
		"duration":        optional(event.Duration),
		"description":     optional(event.Description),
		"created_at":      backend.FormatTimestamp(event.CreatedAt),
		"updated_at":      backend.FormatTimestamp(event.UpdatedAt),
	}
}
