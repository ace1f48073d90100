package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityService_RecentDailySummariesWithoutActivity(t *testing.T) {
	f := newFixture(t)

	summaries, err := f.activity.RecentDailySummaries(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, summaries, 7)

	assert.Equal(t, "2026-03-04", summaries[0].Date)
	assert.Equal(t, "2026-03-10", summaries[6].Date)
	for _, summary := range summaries {
		assert.Zero(t, summary.Entries, summary.Date)
		assert.Zero(t, summary.FocusScore, summary.Date)
		assert.Zero(t, summary.TasksCompleted, summary.Date)
	}
}

func TestActivityService_RecordAndSummarize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	yesterday := f.clock.Now.Add(-24 * time.Hour)
	_, err := f.activity.Record(ctx, services.NewActivity{Timestamp: &yesterday, FocusScore: 40, TasksCompleted: 1})
	require.NoError(t, err)

	_, err = f.activity.Record(ctx, services.NewActivity{FocusScore: 60, EnergyLevel: 50, TasksCompleted: 2, FocusMinutes: 25})
	require.NoError(t, err)
	_, err = f.activity.Record(ctx, services.NewActivity{FocusScore: 80, EnergyLevel: 70, TasksCompleted: 1, FocusMinutes: 50})
	require.NoError(t, err)

	summaries, err := f.activity.RecentDailySummaries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "2026-03-09", summaries[0].Date)
	assert.Equal(t, 1, summaries[0].Entries)
	assert.InDelta(t, 40, summaries[0].FocusScore, 0.001)

	today := summaries[1]
	assert.Equal(t, "2026-03-10", today.Date)
	assert.Equal(t, 2, today.Entries)
	assert.InDelta(t, 70, today.FocusScore, 0.001)
	assert.InDelta(t, 60, today.EnergyLevel, 0.001)
	assert.Equal(t, 3, today.TasksCompleted)
	assert.Equal(t, 75, today.FocusMinutes)
}

func TestActivityService_RecentDailySummariesValidatesDays(t *testing.T) {
	f := newFixture(t)

	for _, days := range []int{0, -1, 367} {
		_, err := f.activity.RecentDailySummaries(context.Background(), days)
		assert.ErrorIs(t, err, services.ErrInvalidInput)
	}
}

func TestActivityService_RecordValidatesScores(t *testing.T) {
	f := newFixture(t)

	_, err := f.activity.Record(context.Background(), services.NewActivity{FocusScore: 101})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = f.activity.Record(context.Background(), services.NewActivity{TasksCompleted: -1})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestActivityService_ListUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older := f.clock.Now.Add(-48 * time.Hour)
	_, err := f.activity.Record(ctx, services.NewActivity{Timestamp: &older, FocusScore: 10})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	recent, err := f.activity.Record(ctx, services.NewActivity{FocusScore: 90})
	require.NoError(t, err)
	assert.True(t, f.clock.Now.Equal(recent.Timestamp))

	from := f.clock.Now.Add(-time.Hour)
	listed, err := f.activity.List(ctx, services.ActivityFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, recent.ID, listed[0].ID)

	updated, err := f.activity.Update(ctx, recent.ID, services.ActivityUpdate{FlowStateMinutes: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.FlowStateMinutes)
	assert.InDelta(t, 90, updated.FocusScore, 0.001)

	require.NoError(t, f.activity.Delete(ctx, recent.ID))
	all, err := f.activity.List(ctx, services.ActivityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestActivityService_DailySummariesUsesLocation(t *testing.T) {
	tb := newFixture(t).backend
	user := tb.CreateUser(t, "berlin@example.com")
	session := services.Session{UserID: user.ID}

	berlin := time.FixedZone("CET", 60*60)

	deps := services.Dependencies{
		Client:   tb.Client,
		Sessions: services.StaticSessions{Session: &session},
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC) },
		Location: berlin,
	}
	activity := services.NewActivityService(deps)
	ctx := context.Background()

	_, err := activity.Record(ctx, services.NewActivity{FocusScore: 50})
	require.NoError(t, err)

	summaries, err := activity.RecentDailySummaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "2026-03-11", summaries[0].Date)
	assert.Equal(t, 1, summaries[0].Entries)
}

func TestActivityService_DailySummariesForDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summaries, err := f.activity.DailySummariesForDates(ctx, "2026-02-27", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, summaries, 4)
	assert.Equal(t, "2026-02-28", summaries[1].Date)
	assert.Equal(t, "2026-03-01", summaries[2].Date)

	_, err = f.activity.DailySummariesForDates(ctx, "2026-03-02", "2026-02-27")
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = f.activity.DailySummariesForDates(ctx, "yesterday", "2026-02-27")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}
