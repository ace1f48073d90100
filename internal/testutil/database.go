package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/database"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/realtime"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/repository"
	"github.com/rs/zerolog"
)

func NewTestDatabase(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := database.Migrate(db, zerolog.Nop()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestBackend bundles a migrated in-memory database with a backend client
// publishing into its own hub.
type TestBackend struct {
	DB     *sql.DB
	Client *backend.Client
	Hub    *realtime.Hub
	Users  *repository.SQLiteUserRepository
}

func NewTestBackend(t *testing.T) *TestBackend {
	t.Helper()

	db := NewTestDatabase(t)
	hub := realtime.NewHub(zerolog.Nop(), nil)
	t.Cleanup(hub.Close)

	client, err := backend.New(db, hub, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("creating backend client: %v", err)
	}

	return &TestBackend{
		DB:     db,
		Client: client,
		Hub:    hub,
		Users:  repository.NewUserRepository(db),
	}
}

// CreateUser inserts an account that owned rows can reference.
func (tb *TestBackend) CreateUser(t *testing.T, email string) models.User {
	t.Helper()
	user, err := tb.Users.Create(context.Background(), models.User{Email: email})
	if err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}

// Clock returns a controllable time source for services.
type Clock struct {
	Now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{Now: now}
}

func (clock *Clock) Func() func() time.Time {
	return func() time.Time { return clock.Now }
}

func (clock *Clock) Advance(d time.Duration) {
	clock.Now = clock.Now.Add(d)
}
