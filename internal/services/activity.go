package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
)

// NewActivity is one measurement. Timestamp defaults to now.
type NewActivity struct {
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	FocusScore        float64    `json:"focusScore" validate:"gte=0,lte=100"`
	EnergyLevel       float64    `json:"energyLevel" validate:"gte=0,lte=100"`
	ProductivityScore float64    `json:"productivityScore" validate:"gte=0,lte=100"`
	TasksCompleted    int        `json:"tasksCompleted" validate:"gte=0"`
	FocusMinutes      int        `json:"focusMinutes" validate:"gte=0"`
	FlowStateMinutes  int        `json:"flowStateMinutes" validate:"gte=0"`
}

type ActivityUpdate struct {
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	FocusScore        *float64   `json:"focusScore,omitempty" validate:"omitempty,gte=0,lte=100"`
	EnergyLevel       *float64   `json:"energyLevel,omitempty" validate:"omitempty,gte=0,lte=100"`
	ProductivityScore *float64   `json:"productivityScore,omitempty" validate:"omitempty,gte=0,lte=100"`
	TasksCompleted    *int       `json:"tasksCompleted,omitempty" validate:"omitempty,gte=0"`
	FocusMinutes      *int       `json:"focusMinutes,omitempty" validate:"omitempty,gte=0"`
	FlowStateMinutes  *int       `json:"flowStateMinutes,omitempty" validate:"omitempty,gte=0"`
}

type ActivityFilter struct {
	From *time.Time
	To   *time.Time
}

// maxSummaryDays matches the longest range the aggregation procedure accepts.
const maxSummaryDays = 366

type ActivityService struct {
	entityService
}

func NewActivityService(deps Dependencies) *ActivityService {
	return &ActivityService{entityService: newEntityService(deps, "user_activity")}
}

func (service *ActivityService) Record(ctx context.Context, input NewActivity) (models.UserActivity, error) {
	session, err := service.session(ctx, "recording activity")
	if err != nil {
		return models.UserActivity{}, err
	}
	if err := validateInput(input); err != nil {
		return models.UserActivity{}, fmt.Errorf("recording activity: %w", err)
	}

	now := service.timestamp()
	activity := models.UserActivity{
		UserID:            session.UserID,
		Timestamp:         now,
		FocusScore:        input.FocusScore,
		EnergyLevel:       input.EnergyLevel,
		ProductivityScore: input.ProductivityScore,
		TasksCompleted:    input.TasksCompleted,
		FocusMinutes:      input.FocusMinutes,
		FlowStateMinutes:  input.FlowStateMinutes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if input.Timestamp != nil {
		activity.Timestamp = input.Timestamp.UTC()
	}

	row, err := service.client.From(service.table).Insert(activityToRow(activity)).Single(ctx)
	if err != nil {
		return models.UserActivity{}, service.fail("recording activity", session, "", err)
	}
	return activityFromRow(row)
}

func (service *ActivityService) Get(ctx context.Context, id string) (models.UserActivity, error) {
	session, err := service.session(ctx, "finding activity")
	if err != nil {
		return models.UserActivity{}, err
	}
	row, err := service.ownedByID(service.client.From(service.table), session, id).Single(ctx)
	if err != nil {
		return models.UserActivity{}, service.fail("finding activity", session, id, err)
	}
	return activityFromRow(row)
}

func (service *ActivityService) Update(ctx context.Context, id string, update ActivityUpdate) (models.UserActivity, error) {
	session, err := service.session(ctx, "updating activity")
	if err != nil {
		return models.UserActivity{}, err
	}
	if err := validateInput(update); err != nil {
		return models.UserActivity{}, fmt.Errorf("updating activity: %w", err)
	}

	row := backend.Row{"updated_at": backend.FormatTimestamp(service.timestamp())}
	if update.Timestamp != nil {
		row["timestamp"] = backend.FormatTimestamp(*update.Timestamp)
	}
	if update.FocusScore != nil {
		row["focus_score"] = *update.FocusScore
	}
	if update.EnergyLevel != nil {
		row["energy_level"] = *update.EnergyLevel
	}
	if update.ProductivityScore != nil {
		row["productivity_score"] = *update.ProductivityScore
	}
	if update.TasksCompleted != nil {
		row["tasks_completed"] = *update.TasksCompleted
	}
	if update.FocusMinutes != nil {
		row["focus_minutes"] = *update.FocusMinutes
	}
	if update.FlowStateMinutes != nil {
		row["flow_state_minutes"] = *update.FlowStateMinutes
	}

	updated, err := service.ownedByID(service.client.From(service.table).Update(row), session, id).Single(ctx)
	if err != nil {
		return models.UserActivity{}, service.fail("updating activity", session, id, err)
	}
	return activityFromRow(updated)
}

func (service *ActivityService) List(ctx context.Context, filter ActivityFilter) ([]models.UserActivity, error) {
	session, err := service.session(ctx, "listing activity")
	if err != nil {
		return nil, err
	}

	query := service.owned(session)
	if filter.From != nil {
		query = query.Gte("timestamp", *filter.From)
	}
	if filter.To != nil {
		query = query.Lte("timestamp", *filter.To)
	}

	rows, err := query.Order("created_at", backend.Descending).Execute(ctx)
	if err != nil {
		return nil, service.fail("listing activity", session, "", err)
	}
	return decodeRows(rows, activityFromRow)
}

func (service *ActivityService) Delete(ctx context.Context, id string) error {
	session, err := service.session(ctx, "deleting activity")
	if err != nil {
		return err
	}
	if _, err := service.ownedByID(service.client.From(service.table).Delete(), session, id).Execute(ctx); err != nil {
		return service.fail("deleting activity", session, id, err)
	}
	return nil
}

// DailySummaries returns one summary per calendar day from start to end
// inclusive, as computed by the backend. Days without activity are zeroed.
func (service *ActivityService) DailySummaries(ctx context.Context, start, end time.Time) ([]models.DailyActivitySummary, error) {
	session, err := service.session(ctx, "summarizing activity")
	if err != nil {
		return nil, err
	}

	start = start.In(service.location)
	end = end.In(service.location)
	_, offset := start.Zone()

	rows, err := service.client.RPC(ctx, backend.DailyActivityProcedure, backend.Row{
		"user_id":            session.UserID,
		"start_date":         start.Format(backend.DateLayout),
		"end_date":           end.Format(backend.DateLayout),
		"utc_offset_minutes": offset / 60,
	})
	if err != nil {
		return nil, service.fail("summarizing activity", session, "", err)
	}
	return decodeRows(rows, dailySummaryFromRow)
}

// DailySummariesForDates takes inclusive YYYY-MM-DD bounds read as calendar
// days in the service location.
func (service *ActivityService) DailySummariesForDates(ctx context.Context, startDate, endDate string) ([]models.DailyActivitySummary, error) {
	start, err := time.ParseInLocation(backend.DateLayout, startDate, service.location)
	if err != nil {
		return nil, fmt.Errorf("summarizing activity: %w: start %q", ErrInvalidInput, startDate)
	}
	end, err := time.ParseInLocation(backend.DateLayout, endDate, service.location)
	if err != nil {
		return nil, fmt.Errorf("summarizing activity: %w: end %q", ErrInvalidInput, endDate)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("summarizing activity: %w: end before start", ErrInvalidInput)
	}
	return service.DailySummaries(ctx, start, end)
}

// ValidateSummaryDays checks a day count for RecentDailySummaries.
func ValidateSummaryDays(days int) error {
	if days < 1 || days > maxSummaryDays {
		return fmt.Errorf("summarizing activity: %w: days must be between 1 and %d", ErrInvalidInput, maxSummaryDays)
	}
	return nil
}

// RecentDailySummaries covers the last days calendar days ending today.
func (service *ActivityService) RecentDailySummaries(ctx context.Context, days int) ([]models.DailyActivitySummary, error) {
	if err := ValidateSummaryDays(days); err != nil {
		return nil, err
	}
	today := service.today()
	return service.DailySummaries(ctx, today.AddDate(0, 0, -(days-1)), today)
}

func activityFromRow(row backend.Row) (models.UserActivity, error) {
	decoder := backend.NewDecoder(row)
	activity := models.UserActivity{
		ID:                decoder.String("id"),
		UserID:            decoder.String("user_id"),
		Timestamp:         decoder.Time("timestamp"),
		FocusScore:        decoder.Float("focus_score"),
		EnergyLevel:       decoder.Float("energy_level"),
		ProductivityScore: decoder.Float("productivity_score"),
		TasksCompleted:    decoder.Int("tasks_completed"),
		FocusMinutes:      decoder.Int("focus_minutes"),
		FlowStateMinutes:  decoder.Int("flow_state_minutes"),
		CreatedAt:         decoder.Time("created_at"),
		UpdatedAt:         decoder.Time("updated_at"),
	}
	if err := decoder.Err(); err != nil {
		return models.UserActivity{}, fmt.Errorf("decoding activity: %w", err)
	}
	return activity, nil
}

func activityToRow(activity models.UserActivity) backend.Row {
	return backend.Row{
		"id":                 activity.ID,
		"user_id":            activity.UserID,
		"timestamp":          backend.FormatTimestamp(activity.Timestamp),
		"focus_score":        activity.FocusScore,
		"energy_level":       activity.EnergyLevel,
		"productivity_score": activity.ProductivityScore,
		"tasks_completed":    activity.TasksCompleted,
		"focus_minutes":      activity.FocusMinutes,
		"flow_state_minutes": activity.FlowStateMinutes,
		"created_at":         backend.FormatTimestamp(activity.CreatedAt),
		"updated_at":         backend.FormatTimestamp(activity.UpdatedAt),
	}
}

func dailySummaryFromRow(row backend.Row) (models.DailyActivitySummary, error) {
	decoder := backend.NewDecoder(row)
	summary := models.DailyActivitySummary{
		Date:              decoder.String("date"),
		FocusScore:        decoder.Float("focus_score"),
		EnergyLevel:       decoder.Float("energy_level"),
		ProductivityScore: decoder.Float("productivity_score"),
		TasksCompleted:    decoder.Int("tasks_completed"),
		FocusMinutes:      decoder.Int("focus_minutes"),
		FlowStateMinutes:  decoder.Int("flow_state_minutes"),
		Entries:           decoder.Int("entries"),
	}
	if err := decoder.Err(); err != nil {
		return models.DailyActivitySummary{}, fmt.Errorf("decoding daily activity: %w", err)
	}
	return summary, nil
}
