package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/config"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/repository"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T) (*AuthService, *testutil.TestBackend) {
	t.Helper()
	tb := testutil.NewTestBackend(t)
	profiles := NewProfileService(Dependencies{Client: tb.Client, Sessions: ContextSessions{}, Logger: zerolog.Nop()})
	cfg := config.Config{SessionSecret: "test-secret-test-secret-test-secret", TokenTTL: time.Hour}
	service, err := NewAuthService(context.Background(), cfg, tb.Users, profiles, zerolog.Nop())
	require.NoError(t, err)
	return service, tb
}

func TestSignUp_CreatesAccountAndProfile(t *testing.T) {
	service, tb := newTestAuthService(t)
	ctx := context.Background()

	session, err := service.SignUp(ctx, Credentials{Email: " Ada@Example.com ", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.Email)

	user, err := tb.Users.FindByID(ctx, session.UserID)
	require.NoError(t, err)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "correct horse", *user.PasswordHash)

	profiles := NewProfileService(Dependencies{Client: tb.Client, Sessions: StaticSessions{Session: &session}, Logger: zerolog.Nop()})
	profile, err := profiles.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, profile.ID)
	assert.Equal(t, "ada@example.com", profile.Email)
}

func TestSignUp_RejectsDuplicateEmail(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := service.SignUp(ctx, Credentials{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = service.SignUp(ctx, Credentials{Email: "ADA@example.com", Password: "another one"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignUp_ValidatesCredentials(t *testing.T) {
	service, _ := newTestAuthService(t)

	_, err := service.SignUp(context.Background(), Credentials{Email: "not-an-email", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSignIn(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := service.SignUp(ctx, Credentials{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	session, err := service.SignIn(ctx, Credentials{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, registered, session)

	_, err = service.SignIn(ctx, Credentials{Email: "ada@example.com", Password: "wrong horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.SignIn(ctx, Credentials{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestToken_RoundTrip(t *testing.T) {
	service, _ := newTestAuthService(t)
	session := Session{UserID: "user-1", Email: "ada@example.com"}

	token, err := service.IssueToken(session)
	require.NoError(t, err)

	parsed, err := service.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, session, parsed)
}

func TestToken_Expires(t *testing.T) {
	service, _ := newTestAuthService(t)
	clock := testutil.NewClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	service.now = clock.Func()

	token, err := service.IssueToken(Session{UserID: "user-1"})
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = service.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_RejectsOtherKeysAndAlgorithms(t *testing.T) {
	service, _ := newTestAuthService(t)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte("other key"))
	require.NoError(t, err)
	_, err = service.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = service.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionCookie_RoundTrip(t *testing.T) {
	service, _ := newTestAuthService(t)
	session := Session{UserID: "user-1", Email: "ada@example.com"}

	recorder := httptest.NewRecorder()
	_, err := service.SetSession(recorder, session)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range recorder.Result().Cookies() {
		request.AddCookie(cookie)
	}

	resolved, err := service.SessionFromRequest(request)
	require.NoError(t, err)
	assert.Equal(t, session, resolved)
}

func TestSessionFromRequest_PrefersBearerToken(t *testing.T) {
	service, _ := newTestAuthService(t)

	token, err := service.IssueToken(Session{UserID: "bearer-user"})
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	request.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})

	session, err := service.SessionFromRequest(request)
	require.NoError(t, err)
	assert.Equal(t, "bearer-user", session.UserID)
}

func TestSessionFromRequest_NoCredentials(t *testing.T) {
	service, _ := newTestAuthService(t)

	_, err := service.SessionFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tampered"})
	_, err = service.SessionFromRequest(request)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProvisionOIDCUser_LinksExistingEmail(t *testing.T) {
	service, tb := newTestAuthService(t)
	ctx := context.Background()

	registered, err := service.SignUp(ctx, Credentials{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	user, err := service.provisionOIDCUser(ctx, oidcIdentity{Subject: "oidc-sub", Email: "ada@example.com", EmailVerified: true, Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, user.ID)

	linked, err := tb.Users.FindByOIDCSubject(ctx, "oidc-sub")
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, linked.ID)

	again, err := service.provisionOIDCUser(ctx, oidcIdentity{Subject: "oidc-sub", Email: "ada@example.com", EmailVerified: true, Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, again.ID)
}

func TestProvisionOIDCUser_RefusesUnverifiedEmail(t *testing.T) {
	service, tb := newTestAuthService(t)
	ctx := context.Background()

	_, err := service.SignUp(ctx, Credentials{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = service.provisionOIDCUser(ctx, oidcIdentity{Subject: "impostor", Email: "ada@example.com", Name: "Not Ada"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = tb.Users.FindByOIDCSubject(ctx, "impostor")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSessionKeys_AreDerivedPerUse(t *testing.T) {
	secret := "test-secret-test-secret-test-secret"
	cookieKey := deriveKey(secret, "session-cookie")
	tokenKey := deriveKey(secret, "access-token")

	assert.Len(t, cookieKey, 32)
	assert.NotEqual(t, cookieKey, tokenKey)
	assert.NotEqual(t, []byte(secret), tokenKey)

	service, _ := newTestAuthService(t)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = service.ParseToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProvisionOIDCUser_CreatesAccountWithProfile(t *testing.T) {
	service, tb := newTestAuthService(t)
	ctx := context.Background()

	user, err := service.provisionOIDCUser(ctx, oidcIdentity{
		Subject:   "oidc-new",
		Email:     "grace@example.com",
		Name:      "Grace",
		AvatarURL: "https://example.com/grace.png",
	})
	require.NoError(t, err)

	count, err := tb.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	session := Session{UserID: user.ID}
	profiles := NewProfileService(Dependencies{Client: tb.Client, Sessions: StaticSessions{Session: &session}, Logger: zerolog.Nop()})
	profile, err := profiles.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile.DisplayName)
	assert.Equal(t, "Grace", *profile.DisplayName)
	require.NotNil(t, profile.AvatarURL)
}
