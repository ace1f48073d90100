package services_test

import (
	"context"
	"testing"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/backend"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provisionProfile(t *testing.T, f *fixture, displayName string) models.Profile {
	t.Helper()
	profile, err := f.profiles.Provision(context.Background(), models.User{ID: f.session.UserID, Email: f.session.Email}, displayName, "")
	require.NoError(t, err)
	return profile
}

func TestProfileService_Provision(t *testing.T) {
	f := newFixture(t)

	profile := provisionProfile(t, f, "Ada")
	assert.Equal(t, f.session.UserID, profile.ID)
	assert.Equal(t, f.session.UserID, profile.UserID)
	assert.Equal(t, "owner@example.com", profile.Email)
	require.NotNil(t, profile.DisplayName)
	assert.Equal(t, "Ada", *profile.DisplayName)
	assert.Nil(t, profile.AvatarURL)

	stored, err := f.profiles.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, profile, stored)
}

func TestProfileService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	provisionProfile(t, f, "Ada")

	result := f.profiles.UpdateProfile(ctx, services.ProfileUpdate{
		DisplayName: ptr("Ada L."),
		AvatarURL:   ptr("https://example.com/ada.png"),
		Timezone:    ptr("UTC"),
	})
	assert.Equal(t, services.Result{Success: true}, result)

	profile, err := f.profiles.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile.DisplayName)
	assert.Equal(t, "Ada L.", *profile.DisplayName)
	require.NotNil(t, profile.Timezone)
	assert.Equal(t, "UTC", *profile.Timezone)

	result = f.profiles.UpdateProfile(ctx, services.ProfileUpdate{AvatarURL: ptr("")})
	assert.True(t, result.Success)

	profile, err = f.profiles.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile.AvatarURL)
	require.NotNil(t, profile.DisplayName)
	assert.Equal(t, "Ada L.", *profile.DisplayName)
}

func TestProfileService_UpdateProfileReportsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.profiles.UpdateProfile(ctx, services.ProfileUpdate{DisplayName: ptr("Nobody")})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	provisionProfile(t, f, "")

	result = f.profiles.UpdateProfile(ctx, services.ProfileUpdate{Timezone: ptr("Nowhere/Special")})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, services.ErrInvalidInput.Error())

	result = f.profiles.UpdateProfile(ctx, services.ProfileUpdate{AvatarURL: ptr("not a url")})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, services.ErrInvalidInput.Error())
}

func TestProfileService_GetWithoutProfileIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.profiles.Get(context.Background())
	assert.True(t, backend.IsNotFound(err))
}
