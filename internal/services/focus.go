package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
)

type NewFocusSession struct {
	Duration    int              `json:"duration" validate:"gte=0,lte=1440"`
	Mode        models.FocusMode `json:"mode" validate:"required,oneof=focus shortBreak longBreak"`
	Completed   bool             `json:"completed"`
	EnergyLevel *models.Level    `json:"energyLevel,omitempty" validate:"omitempty,oneof=low medium high"`
}

type FocusSessionUpdate struct {
	Duration    *int              `json:"duration,omitempty" validate:"omitempty,gte=0,lte=1440"`
	Mode        *models.FocusMode `json:"mode,omitempty" validate:"omitempty,oneof=focus shortBreak longBreak"`
	Completed   *bool             `json:"completed,omitempty"`
	EnergyLevel *models.Level     `json:"energyLevel,omitempty" validate:"omitempty,oneof=low medium high"`
}

type FocusSessionFilter struct {
	Mode         *models.FocusMode
	Completed    *bool
	CreatedAfter *time.Time
	// CreatedBefore is exclusive.
	CreatedBefore *time.Time
}

type FocusSettingsUpdate struct {
	FocusDuration          *int     `json:"focusDuration,omitempty" validate:"omitempty,gte=1,lte=240"`
	ShortBreakDuration     *int     `json:"shortBreakDuration,omitempty" validate:"omitempty,gte=1,lte=120"`
	LongBreakDuration      *int     `json:"longBreakDuration,omitempty" validate:"omitempty,gte=1,lte=240"`
	SessionsUntilLongBreak *int     `json:"sessionsUntilLongBreak,omitempty" validate:"omitempty,gte=1,lte=12"`
	SoundEnabled           *bool    `json:"soundEnabled,omitempty"`
	Theme                  *string  `json:"theme,omitempty" validate:"omitempty,min=1,max=64"`
	Volume                 *float64 `json:"volume,omitempty" validate:"omitempty,gte=0,lte=1"`
	LoopAudio              *bool    `json:"loopAudio,omitempty"`
	LastPlayedSound        *string  `json:"lastPlayedSound,omitempty"`
}

// DefaultFocusSettings are served until the user saves settings of their own.
func DefaultFocusSettings(userID string) models.FocusSettings {
	return models.FocusSettings{
		UserID:                 userID,
		FocusDuration:          25,
		ShortBreakDuration:     5,
		LongBreakDuration:      15,
		SessionsUntilLongBreak: 4,
		SoundEnabled:           true,
		Theme:                  "calm",
		Volume:                 0.5,
		LoopAudio:              true,
	}
}

// FocusService covers focus sessions and the per-user settings and streak
// singletons.
type FocusService struct {
	entityService
	// streakMu serialises the read-then-write of focus_streaks.
	streakMu sync.Mutex
}

func NewFocusService(deps Dependencies) *FocusService {
	return &FocusService{entityService: newEntityService(deps, "focus_sessions")}
}

// Create stores a session. A completed focus session advances the streak.
func (service *FocusService) Create(ctx context.Context, input NewFocusSession) (models.FocusSession, error) {
	session, err := service.session(ctx, "creating focus session")
	if err != nil {
		return models.FocusSession{}, err
	}
	if err := validateInput(input); err != nil {
		return models.FocusSession{}, fmt.Errorf("creating focus session: %w", err)
	}

	now := service.timestamp()
	focusSession := models.FocusSession{
		UserID:      session.UserID,
		Duration:    input.Duration,
		Mode:        input.Mode,
		Completed:   input.Completed,
		EnergyLevel: input.EnergyLevel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	row, err := service.client.From(service.table).Insert(focusSessionToRow(focusSession)).Single(ctx)
	if err != nil {
		return models.FocusSession{}, service.fail("creating focus session", session, "", err)
	}
	created, err := focusSessionFromRow(row)
	if err != nil {
		return models.FocusSession{}, err
	}

	if created.Completed && created.Mode == models.FocusModeFocus {
		if _, err := service.advanceStreak(ctx, session); err != nil {
			return models.FocusSession{}, err
		}
	}
	return created, nil
}

func (service *FocusService) Get(ctx context.Context, id string) (models.FocusSession, error) {
	session, err := service.session(ctx, "finding focus session")
	if err != nil {
		return models.FocusSession{}, err
	}
	row, err := service.ownedByID(service.client.From(service.table), session, id).Single(ctx)
	if err != nil {
		return models.FocusSession{}, service.fail("finding focus session", session, id, err)
	}
	return focusSessionFromRow(row)
}

// Update applies the non-nil fields. Marking a focus session completed for
// the first time advances the streak.
func (service *FocusService) Update(ctx context.Context, id string, update FocusSessionUpdate) (models.FocusSession, error) {
	session, err := service.session(ctx, "updating focus session")
	if err != nil {
		return models.FocusSession{}, err
	}
	if err := validateInput(update); err != nil {
		return models.FocusSession{}, fmt.Errorf("updating focus session: %w", err)
	}

	wasCompleted := false
	if update.Completed != nil && *update.Completed {
		current, err := service.Get(ctx, id)
		if err != nil {
			return models.FocusSession{}, err
		}
		wasCompleted = current.Completed
	}

	row := backend.Row{"updated_at": backend.FormatTimestamp(service.timestamp())}
	if update.Duration != nil {
		row["duration"] = *update.Duration
	}
	if update.Mode != nil {
		row["mode"] = string(*update.Mode)
	}
	if update.Completed != nil {
		row["completed"] = *update.Completed
	}
	if update.EnergyLevel != nil {
		row["energy_level"] = string(*update.EnergyLevel)
	}

	updatedRow, err := service.ownedByID(service.client.From(service.table).Update(row), session, id).Single(ctx)
	if err != nil {
		return models.FocusSession{}, service.fail("updating focus session", session, id, err)
	}
	updated, err := focusSessionFromRow(updatedRow)
	if err != nil {
		return models.FocusSession{}, err
	}

	if !wasCompleted && updated.Completed && updated.Mode == models.FocusModeFocus {
		if _, err := service.advanceStreak(ctx, session); err != nil {
			return models.FocusSession{}, err
		}
	}
	return updated, nil
}

func (service *FocusService) List(ctx context.Context, filter FocusSessionFilter) ([]models.FocusSession, error) {
	session, err := service.session(ctx, "listing focus sessions")
	if err != nil {
		return nil, err
	}

	query := service.owned(session)
	if filter.Mode != nil {
		query = query.Eq("mode", *filter.Mode)
	}
	if filter.Completed != nil {
		query = query.Eq("completed", *filter.Completed)
	}
	if filter.CreatedAfter != nil {
		query = query.Gte("created_at", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Lt("created_at", *filter.CreatedBefore)
	}

	rows, err := query.Order("created_at", backend.Descending).Execute(ctx)
	if err != nil {
		return nil, service.fail("listing focus sessions", session, "", err)
	}
	return decodeRows(rows, focusSessionFromRow)
}

func (service *FocusService) Delete(ctx context.Context, id string) error {
	session, err := service.session(ctx, "deleting focus session")
	if err != nil {
		return err
	}
	if _, err := service.ownedByID(service.client.From(service.table).Delete(), session, id).Execute(ctx); err != nil {
		return service.fail("deleting focus session", session, id, err)
	}
	return nil
}

// GetSettings returns the stored settings, or the defaults when none were
// saved yet.
func (service *FocusService) GetSettings(ctx context.Context) (models.FocusSettings, error) {
	session, err := service.session(ctx, "finding focus settings")
	if err != nil {
		return models.FocusSettings{}, err
	}

	row, err := service.client.From("focus_settings").Eq(backend.OwnerColumn, session.UserID).Single(ctx)
	if backend.IsNotFound(err) {
		service.logger.Debug().Str("user_id", session.UserID).Msg("no focus settings saved, using defaults")
		return DefaultFocusSettings(session.UserID), nil
	}
	if err != nil {
		return models.FocusSettings{}, service.fail("finding focus settings", session, "", err)
	}
	return focusSettingsFromRow(row)
}

// UpdateSettings saves the non-nil fields, creating the settings row on first
// use. Fields never saved keep their defaults.
func (service *FocusService) UpdateSettings(ctx context.Context, update FocusSettingsUpdate) (models.FocusSettings, error) {
	session, err := service.session(ctx, "saving focus settings")
	if err != nil {
		return models.FocusSettings{}, err
	}
	if err := validateInput(update); err != nil {
		return models.FocusSettings{}, fmt.Errorf("saving focus settings: %w", err)
	}

	now := backend.FormatTimestamp(service.timestamp())
	row := backend.Row{
		backend.OwnerColumn: session.UserID,
		"created_at":        now,
		"updated_at":        now,
	}
	if update.FocusDuration != nil {
		row["focus_duration"] = *update.FocusDuration
	}
	if update.ShortBreakDuration != nil {
		row["short_break_duration"] = *update.ShortBreakDuration
	}
	if update.LongBreakDuration != nil {
		row["long_break_duration"] = *update.LongBreakDuration
	}
	if update.SessionsUntilLongBreak != nil {
		row["sessions_until_long_break"] = *update.SessionsUntilLongBreak
	}
	if update.SoundEnabled != nil {
		row["sound_enabled"] = *update.SoundEnabled
	}
	if update.Theme != nil {
		row["theme"] = *update.Theme
	}
	if update.Volume != nil {
		row["volume"] = *update.Volume
	}
	if update.LoopAudio != nil {
		row["loop_audio"] = *update.LoopAudio
	}
	if update.LastPlayedSound != nil {
		row["last_played_sound"] = nonEmpty(*update.LastPlayedSound)
	}

	saved, err := service.client.From("focus_settings").Upsert(row, backend.OwnerColumn).Single(ctx)
	if err != nil {
		return models.FocusSettings{}, service.fail("saving focus settings", session, "", err)
	}
	return focusSettingsFromRow(saved)
}

// GetStreak returns the stored streak, or a zero streak for users who never
// completed a focus session.
func (service *FocusService) GetStreak(ctx context.Context) (models.FocusStreak, error) {
	session, err := service.session(ctx, "finding focus streak")
	if err != nil {
		return models.FocusStreak{}, err
	}
	streak, found, err := service.findStreak(ctx, session)
	if err != nil {
		return models.FocusStreak{}, err
	}
	if !found {
		return models.FocusStreak{UserID: session.UserID}, nil
	}
	return streak, nil
}

func (service *FocusService) findStreak(ctx context.Context, session Session) (models.FocusStreak, bool, error) {
	row, err := service.client.From("focus_streaks").Eq(backend.OwnerColumn, session.UserID).Single(ctx)
	if backend.IsNotFound(err) {
		return models.FocusStreak{}, false, nil
	}
	if err != nil {
		return models.FocusStreak{}, false, service.fail("finding focus streak", session, "", err)
	}
	streak, err := focusStreakFromRow(row)
	if err != nil {
		return models.FocusStreak{}, false, err
	}
	return streak, true, nil
}

// advanceStreak records a completed focus session for today. A second
// completion on the same day leaves the streak untouched, even when the streak
// was broken before today.
func (service *FocusService) advanceStreak(ctx context.Context, session Session) (models.FocusStreak, error) {
	service.streakMu.Lock()
	defer service.streakMu.Unlock()

	streak, err := service.writeStreak(ctx, session)
	if backend.HasCode(err, backend.CodeConstraintViolation) {
		// Another writer created the row between our read and insert.
		return service.writeStreak(ctx, session)
	}
	return streak, err
}

func (service *FocusService) writeStreak(ctx context.Context, session Session) (models.FocusStreak, error) {
	existing, found, err := service.findStreak(ctx, session)
	if err != nil {
		return models.FocusStreak{}, fmt.Errorf("advancing focus streak: %w", err)
	}

	today := service.today()
	now := backend.FormatTimestamp(service.timestamp())

	if !found {
		row := backend.Row{
			backend.OwnerColumn: session.UserID,
			"current_streak":    1,
			"longest_streak":    1,
			"last_focus_date":   today.Format(backend.DateLayout),
			"created_at":        now,
			"updated_at":        now,
		}
		inserted, err := service.client.From("focus_streaks").Insert(row).Single(ctx)
		if err != nil {
			return models.FocusStreak{}, service.fail("advancing focus streak", session, "", err)
		}
		return focusStreakFromRow(inserted)
	}

	next, changed := NextStreak(existing, today)
	if !changed {
		return existing, nil
	}

	updated, err := service.client.From("focus_streaks").
		Update(backend.Row{
			"current_streak":  next.CurrentStreak,
			"longest_streak":  next.LongestStreak,
			"last_focus_date": optional(next.LastFocusDate),
			"updated_at":      now,
		}).
		Eq(backend.OwnerColumn, session.UserID).
		Single(ctx)
	if err != nil {
		return models.FocusStreak{}, service.fail("advancing focus streak", session, existing.ID, err)
	}
	service.logger.Debug().Str("user_id", session.UserID).Int("current_streak", next.CurrentStreak).Msg("focus streak advanced")
	return focusStreakFromRow(updated)
}

// NextStreak applies one completed focus session on today to streak. It
// reports false when the streak already counts today.
func NextStreak(streak models.FocusStreak, today time.Time) (models.FocusStreak, bool) {
	todayText := today.Format(backend.DateLayout)
	yesterdayText := today.AddDate(0, 0, -1).Format(backend.DateLayout)

	if streak.LastFocusDate != nil && *streak.LastFocusDate == todayText {
		return streak, false
	}

	if streak.LastFocusDate != nil && *streak.LastFocusDate == yesterdayText {
		streak.CurrentStreak++
		if streak.CurrentStreak > streak.LongestStreak {
			streak.LongestStreak = streak.CurrentStreak
		}
	} else {
		streak.CurrentStreak = 1
		if streak.LongestStreak < 1 {
			streak.LongestStreak = 1
		}
	}
	streak.LastFocusDate = &todayText
	return streak, true
}

// TodayStats summarizes the sessions completed since midnight.
func (service *FocusService) TodayStats(ctx context.Context) (models.FocusTodayStats, error) {
	today := service.today()
	completed := true
	start := today.UTC()
	end := today.AddDate(0, 0, 1).UTC()

	sessions, err := service.List(ctx, FocusSessionFilter{
		Completed:     &completed,
		CreatedAfter:  &start,
		CreatedBefore: &end,
	})
	if err != nil {
		return models.FocusTodayStats{}, err
	}

	stats := models.FocusTodayStats{Date: today.Format(backend.DateLayout)}
	for _, focusSession := range sessions {
		if focusSession.Mode == models.FocusModeFocus {
			stats.CompletedFocus++
			stats.FocusMinutes += focusSession.Duration
			continue
		}
		stats.CompletedBreaks++
	}
	return stats, nil
}

func focusSessionFromRow(row backend.Row) (models.FocusSession, error) {
	decoder := backend.NewDecoder(row)
	focusSession := models.FocusSession{
		ID:        decoder.String("id"),
		UserID:    decoder.String("user_id"),
		Duration:  decoder.Int("duration"),
		Mode:      models.FocusMode(decoder.String("mode")),
		Completed: decoder.Bool("completed"),
		CreatedAt: decoder.Time("created_at"),
		UpdatedAt: decoder.Time("updated_at"),
	}
	if energy := decoder.OptionalString("energy_level"); energy != nil {
		level := models.Level(*energy)
		focusSession.EnergyLevel = &level
	}
	if err := decoder.Err(); err != nil {
		return models.FocusSession{}, fmt.Errorf("decoding focus session: %w", err)
	}
	return focusSession, nil
}

func focusSessionToRow(focusSession models.FocusSession) backend.Row {
	var energy any
	if focusSession.EnergyLevel != nil {
		energy = string(*focusSession.EnergyLevel)
	}
	return backend.Row{
		"id":           focusSession.ID,
		"user_id":      focusSession.UserID,
		"duration":     focusSession.Duration,
		"mode":         string(focusSession.Mode),
		"completed":    focusSession.Completed,
		"energy_level": energy,
		"created_at":   backend.FormatTimestamp(focusSession.CreatedAt),
		"updated_at":   backend.FormatTimestamp(focusSession.UpdatedAt),
	}
}

func focusSettingsFromRow(row backend.Row) (models.FocusSettings, error) {
	decoder := backend.NewDecoder(row)
	settings := models.FocusSettings{
		ID:                     decoder.String("id"),
		UserID:                 decoder.String("user_id"),
		FocusDuration:          decoder.Int("focus_duration"),
		ShortBreakDuration:     decoder.Int("short_break_duration"),
		LongBreakDuration:      decoder.Int("long_break_duration"),
		SessionsUntilLongBreak: decoder.Int("sessions_until_long_break"),
		SoundEnabled:           decoder.Bool("sound_enabled"),
		Theme:                  decoder.String("theme"),
		Volume:                 decoder.Float("volume"),
		LoopAudio:              decoder.Bool("loop_audio"),
		LastPlayedSound:        decoder.OptionalString("last_played_sound"),
		CreatedAt:              decoder.Time("created_at"),
		UpdatedAt:              decoder.Time("updated_at"),
	}
	if err := decoder.Err(); err != nil {
		return models.FocusSettings{}, fmt.Errorf("decoding focus settings: %w", err)
	}
	return settings, nil
}

func focusSettingsToRow(settings models.FocusSettings) backend.Row {
	return backend.Row{
		"id":                        settings.ID,
		"user_id":                   settings.UserID,
		"focus_duration":            settings.FocusDuration,
		"short_break_duration":      settings.ShortBreakDuration,
		"long_break_duration":       settings.LongBreakDuration,
		"sessions_until_long_break": settings.SessionsUntilLongBreak,
		"sound_enabled":             settings.SoundEnabled,
		"theme":                     settings.Theme,
		"volume":                    settings.Volume,
		"loop_audio":                settings.LoopAudio,
		"last_played_sound":         optional(settings.LastPlayedSound),
		"created_at":                backend.FormatTimestamp(settings.CreatedAt),
		"updated_at":                backend.FormatTimestamp(settings.UpdatedAt),
	}
}

func focusStreakFromRow(row backend.Row) (models.FocusStreak, error) {
	decoder := backend.NewDecoder(row)
	streak := models.FocusStreak{
		ID:            decoder.String("id"),
		UserID:        decoder.String("user_id"),
		CurrentStreak: decoder.Int("current_streak"),
		LongestStreak: decoder.Int("longest_streak"),
		LastFocusDate: decoder.OptionalString("last_focus_date"),
		CreatedAt:     decoder.Time("created_at"),
		UpdatedAt:     decoder.Time("updated_at"),
	}
	if err := decoder.Err(); err != nil {
		return models.FocusStreak{}, fmt.Errorf("decoding focus streak: %w", err)
	}
	return streak, nil
}

func focusStreakToRow(streak models.FocusStreak) backend.Row {
	return backend.Row{
		"id":              streak.ID,
		"user_id":         streak.UserID,
		"current_streak":  streak.CurrentStreak,
		"longest_streak":  streak.LongestStreak,
		"last_focus_date": optional(streak.LastFocusDate),
		"created_at":      backend.FormatTimestamp(streak.CreatedAt),
		"updated_at":      backend.FormatTimestamp(streak.UpdatedAt),
	}
}
