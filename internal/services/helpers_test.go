package services_test

import (
	"testing"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/testutil"
	"github.com/rs/zerolog"
)

type fixture struct {
	backend  *testutil.TestBackend
	clock    *testutil.Clock
	session  services.Session
	tasks    *services.TaskService
	projects *services.ProjectService
	calendar *services.CalendarService
	activity *services.ActivityService
	focus    *services.FocusService
	profiles *services.ProfileService
}

// newFixture signs in a fresh account and builds every service for it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	tb := testutil.NewTestBackend(t)
	user := tb.CreateUser(t, "owner@example.com")
	session := services.Session{UserID: user.ID, Email: user.Email}
	return newFixtureFor(t, tb, session)
}

func newFixtureFor(t *testing.T, tb *testutil.TestBackend, session services.Session) *fixture {
	t.Helper()
	clock := testutil.NewClock(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	deps := services.Dependencies{
		Client:   tb.Client,
		Sessions: services.StaticSessions{Session: &session},
		Logger:   zerolog.Nop(),
		Now:      clock.Func(),
	}
	return &fixture{
		backend:  tb,
		clock:    clock,
		session:  session,
		tasks:    services.NewTaskService(deps),
		projects: services.NewProjectService(deps),
		calendar: services.NewCalendarService(deps),
		activity: services.NewActivityService(deps),
		focus:    services.NewFocusService(deps),
		profiles: services.NewProfileService(deps),
	}
}

// signedOut builds services over the same backend without a session.
func signedOut(tb *testutil.TestBackend) services.Dependencies {
	return services.Dependencies{
		Client:   tb.Client,
		Sessions: services.StaticSessions{},
		Logger:   zerolog.Nop(),
	}
}

func ptr[T any](value T) *T {
	return &value
}
