package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
)

type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,max=100"`
	AvatarURL   *string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Timezone    *string `json:"timezone,omitempty"`
}

// ProfileService serves the signed-in account's profile. Profiles share their
// id with the account.
type ProfileService struct {
	entityService
}

func NewProfileService(deps Dependencies) *ProfileService {
	return &ProfileService{entityService: newEntityService(deps, "profiles")}
}

func (service *ProfileService) Get(ctx context.Context) (models.Profile, error) {
	session, err := service.session(ctx, "finding profile")
	if err != nil {
		return models.Profile{}, err
	}
	row, err := service.owned(session).Single(ctx)
	if err != nil {
		return models.Profile{}, service.fail("finding profile", session, "", err)
	}
	return profileFromRow(row)
}

// UpdateProfile reports its outcome as a Result instead of an error.
func (service *ProfileService) UpdateProfile(ctx context.Context, update ProfileUpdate) Result {
	session, err := service.session(ctx, "updating profile")
	if err != nil {
		return Result{Error: err.Error()}
	}
	if err := validateInput(update); err != nil {
		return Result{Error: err.Error()}
	}
	if update.Timezone != nil && *update.Timezone != "" {
		if _, err := time.LoadLocation(*update.Timezone); err != nil {
			return Result{Error: fmt.Sprintf("%v: unknown timezone %q", ErrInvalidInput, *update.Timezone)}
		}
	}

	row := backend.Row{"updated_at": backend.FormatTimestamp(service.timestamp())}
	if update.DisplayName != nil {
		row["display_name"] = nonEmpty(*update.DisplayName)
	}
	if update.AvatarURL != nil {
		row["avatar_url"] = nonEmpty(*update.AvatarURL)
	}
	if update.Timezone != nil {
		row["timezone"] = nonEmpty(*update.Timezone)
	}

	_, err = service.client.From(service.table).Update(row).Eq(backend.OwnerColumn, session.UserID).Single(ctx)
	if err != nil {
		return Result{Error: service.fail("updating profile", session, "", err).Error()}
	}
	return Result{Success: true}
}

// Provision creates the profile of a newly registered account. It runs
// before the account has a session.
func (service *ProfileService) Provision(ctx context.Context, user models.User, displayName, avatarURL string) (models.Profile, error) {
	if user.ID == "" {
		return models.Profile{}, errors.New("provisioning profile: account has no id")
	}
	now := service.timestamp()
	profile := models.Profile{
		ID:        user.ID,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if displayName != "" {
		profile.DisplayName = &displayName
	}
	if avatarURL != "" {
		profile.AvatarURL = &avatarURL
	}

	row, err := service.client.From(service.table).Insert(profileToRow(profile)).Single(ctx)
	if err != nil {
		return models.Profile{}, service.fail("provisioning profile", Session{UserID: user.ID, Email: user.Email}, user.ID, err)
	}
	return profileFromRow(row)
}

func profileFromRow(row backend.Row) (models.Profile, error) {
	decoder := backend.NewDecoder(row)
	profile := models.Profile{
		ID:          decoder.String("id"),
		UserID:      decoder.String("user_id"),
		Email:       decoder.String("email"),
		DisplayName: decoder.OptionalString("display_name"),
		AvatarURL:   decoder.OptionalString("avatar_url"),
		Timezone:    decoder.OptionalString("timezone"),
		CreatedAt:   decoder.Time("created_at"),
		UpdatedAt:   decoder.Time("updated_at"),
	}
	if err := decoder.Err(); err != nil {
		return models.Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	return profile, nil
}

func profileToRow(profile models.Profile) backend.Row {
	return backend.Row{
		"id":           profile.ID,
		"user_id":      profile.UserID,
		"email":        profile.Email,
		"display_name": optional(profile.DisplayName),
		"avatar_url":   optional(profile.AvatarURL),
		"timezone":     optional(profile.Timezone),
		"created_at":   backend.FormatTimestamp(profile.CreatedAt),
		"updated_at":   backend.FormatTimestamp(profile.UpdatedAt),
	}
}
