package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository stores sign-in credentials. Account data that clients read
// lives in profiles and is served through the backend client.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByOIDCSubject(ctx context.Context, subject string) (models.User, error)
	Create(ctx context.Context, user models.User) (models.User, error)
	LinkOIDCSubject(ctx context.Context, id string, subject string) error
	Count(ctx context.Context) (int, error)
}

type SQLiteUserRepository struct {
	database *sql.DB
}

func NewUserRepository(database *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{database: database}
}

const userColumns = "id, email, password_hash, oidc_subject, created_at, updated_at"

func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var (
		user                 models.User
		passwordHash         sql.NullString
		oidcSubject          sql.NullString
		createdAt, updatedAt string
	)
	if err := scanner.Scan(&user.ID, &user.Email, &passwordHash, &oidcSubject, &createdAt, &updatedAt); err != nil {
		return models.User{}, err
	}
	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	if oidcSubject.Valid {
		user.OIDCSubject = &oidcSubject.String
	}
	var err error
	if user.CreatedAt, err = backend.ParseTimestamp(createdAt); err != nil {
		return models.User{}, err
	}
	if user.UpdatedAt, err = backend.ParseTimestamp(updatedAt); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repository *SQLiteUserRepository) findOne(ctx context.Context, description string, query string, arg any) (models.User, error) {
	user, err := scanUser(repository.database.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("finding user by %s: %w", description, ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("finding user by %s: %w", description, err)
	}
	return user, nil
}

func (repository *SQLiteUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return repository.findOne(ctx, "id", "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (repository *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return repository.findOne(ctx, "email", "SELECT "+userColumns+" FROM users WHERE email = ?", NormalizeEmail(email))
}

func (repository *SQLiteUserRepository) FindByOIDCSubject(ctx context.Context, subject string) (models.User, error) {
	return repository.findOne(ctx, "oidc subject", "SELECT "+userColumns+" FROM users WHERE oidc_subject = ?", subject)
}

func (repository *SQLiteUserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = NormalizeEmail(user.Email)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := repository.database.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.OIDCSubject,
		backend.FormatTimestamp(user.CreatedAt), backend.FormatTimestamp(user.UpdatedAt),
	)
	if err != nil {
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

func (repository *SQLiteUserRepository) LinkOIDCSubject(ctx context.Context, id string, subject string) error {
	_, err := repository.database.ExecContext(ctx,
		"UPDATE users SET oidc_subject = ?, updated_at = ? WHERE id = ?",
		subject, backend.FormatTimestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("linking oidc subject: %w", err)
	}
	return nil
}

func (repository *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := repository.database.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
