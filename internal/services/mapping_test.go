package services

import (
	"testing"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2026, 3, 10, 9, 30, 0, 123000, time.UTC)
	updated = time.Date(2026, 3, 11, 18, 5, 59, 0, time.UTC)
)

func stringPtr(value string) *string { return &value }
func intPtr(value int) *int          { return &value }

// The mappings must be lossless in both directions for rows with every
// optional field set and with every optional field empty.

func TestTaskMapping(t *testing.T) {
	completed := updated
	full := models.Task{
		ID: "t1", UserID: "u1", ProjectID: stringPtr("p1"), Title: "Review", Description: stringPtr("notes"),
		Status: models.TaskStatusDone, Priority: models.LevelHigh, EnergyLevel: models.LevelLow, IsQuickWin: true,
		EstimatedTime: intPtr(30), ActualTime: intPtr(0), CompletedAt: &completed, CreatedAt: created, UpdatedAt: updated,
	}
	sparse := models.Task{
		ID: "t2", UserID: "u1", Title: "Sparse", Status: models.TaskStatusTodo,
		Priority: models.LevelMedium, EnergyLevel: models.LevelMedium, CreatedAt: created, UpdatedAt: created,
	}

	for _, task := range []models.Task{full, sparse} {
		decoded, err := taskFromRow(taskToRow(task))
		require.NoError(t, err)
		assert.Equal(t, task, decoded)
	}
}

func TestProjectMapping(t *testing.T) {
	project := models.Project{ID: "p1", UserID: "u1", Name: "Garden", Description: stringPtr("beds"), Color: "#fff", CreatedAt: created, UpdatedAt: updated}

	decoded, err := projectFromRow(projectToRow(project))
	require.NoError(t, err)
	assert.Equal(t, project, decoded)
}

func TestCalendarEventMapping(t *testing.T) {
	event := models.CalendarEvent{
		ID: "e1", UserID: "u1", Title: "Dentist", Type: models.EventTypeAppointment, Date: "2026-03-12",
		Time: stringPtr("14:00"), EnergyRequired: models.LevelLow, IsUrgent: true, Duration: intPtr(45),
		CreatedAt: created, UpdatedAt: updated,
	}

	decoded, err := calendarEventFromRow(calendarEventToRow(event))
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestActivityMapping(t *testing.T) {
	activity := models.UserActivity{
		ID: "a1", UserID: "u1", Timestamp: created, FocusScore: 72.5, EnergyLevel: 40, ProductivityScore: 66,
		TasksCompleted: 3, FocusMinutes: 50, FlowStateMinutes: 20, CreatedAt: created, UpdatedAt: updated,
	}

	decoded, err := activityFromRow(activityToRow(activity))
	require.NoError(t, err)
	assert.Equal(t, activity, decoded)
}

func TestFocusMappings(t *testing.T) {
	energy := models.LevelHigh
	focusSession := models.FocusSession{ID: "f1", UserID: "u1", Duration: 25, Mode: models.FocusModeFocus, Completed: true, EnergyLevel: &energy, CreatedAt: created, UpdatedAt: updated}
	decodedSession, err := focusSessionFromRow(focusSessionToRow(focusSession))
	require.NoError(t, err)
	assert.Equal(t, focusSession, decodedSession)

	settings := DefaultFocusSettings("u1")
	settings.ID = "s1"
	settings.LastPlayedSound = stringPtr("rain")
	settings.CreatedAt = created
	settings.UpdatedAt = updated
	decodedSettings, err := focusSettingsFromRow(focusSettingsToRow(settings))
	require.NoError(t, err)
	assert.Equal(t, settings, decodedSettings)

	streak := models.FocusStreak{ID: "k1", UserID: "u1", CurrentStreak: 3, LongestStreak: 5, LastFocusDate: stringPtr("2026-03-10"), CreatedAt: created, UpdatedAt: updated}
	decodedStreak, err := focusStreakFromRow(focusStreakToRow(streak))
	require.NoError(t, err)
	assert.Equal(t, streak, decodedStreak)
}

func TestProfileMapping(t *testing.T) {
	profile := models.Profile{ID: "u1", UserID: "u1", Email: "ada@example.com", Timezone: stringPtr("Europe/London"), CreatedAt: created, UpdatedAt: updated}

	decoded, err := profileFromRow(profileToRow(profile))
	require.NoError(t, err)
	assert.Equal(t, profile, decoded)
}

func TestFromRowReportsMissingColumns(t *testing.T) {
	row := taskToRow(models.Task{ID: "t1", CreatedAt: created, UpdatedAt: created})
	delete(row, "title")

	_, err := taskFromRow(row)
	assert.Error(t, err)
}
