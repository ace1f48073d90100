package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/config"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/repository"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid session token")
)

const SessionCookieName = "session"

type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	oauthConfig  *oauth2.Config
	oidcVerifier *oidc.IDTokenVerifier
	secureCookie *securecookie.SecureCookie
	signingKey   []byte
	tokenTTL     time.Duration
	users        repository.UserRepository
	profiles     *ProfileService
	logger       zerolog.Logger
	now          func() time.Time
}

func NewAuthService(ctx context.Context, cfg config.Config, users repository.UserRepository, profiles *ProfileService, logger zerolog.Logger) (*AuthService, error) {
	service := &AuthService{
		secureCookie: securecookie.New(deriveKey(cfg.SessionSecret, "session-cookie"), nil),
		signingKey:   deriveKey(cfg.SessionSecret, "access-token"),
		tokenTTL:     cfg.TokenTTL,
		users:        users,
		profiles:     profiles,
		logger:       logger.With().Str("component", "auth").Logger(),
		now:          time.Now,
	}
	service.secureCookie.MaxAge(int(cfg.TokenTTL.Seconds()))

	if !cfg.OIDCEnabled() {
		service.logger.Info().Msg("OIDC not configured, password sign-in only")
		return service, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("creating OIDC provider: %w", err)
	}

	service.oauthConfig = &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCCallbackURL(),
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	service.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})
	return service, nil
}

func (service *AuthService) SignUp(ctx context.Context, credentials Credentials) (Session, error) {
	credentials.Email = repository.NormalizeEmail(credentials.Email)
	if err := validateInput(credentials); err != nil {
		return Session{}, fmt.Errorf("signing up: %w", err)
	}

	_, err := service.users.FindByEmail(ctx, credentials.Email)
	if err == nil {
		return Session{}, fmt.Errorf("signing up: %w", ErrEmailTaken)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return Session{}, fmt.Errorf("signing up: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credentials.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hashing password: %w", err)
	}
	passwordHash := string(hash)

	user, err := service.users.Create(ctx, models.User{Email: credentials.Email, PasswordHash: &passwordHash})
	if err != nil {
		return Session{}, fmt.Errorf("signing up: %w", err)
	}
	if _, err := service.profiles.Provision(ctx, user, "", ""); err != nil {
		return Session{}, fmt.Errorf("signing up: %w", err)
	}

	service.logger.Info().Str("user_id", user.ID).Msg("registered new account")
	return Session{UserID: user.ID, Email: user.Email}, nil
}

func (service *AuthService) SignIn(ctx context.Context, credentials Credentials) (Session, error) {
	user, err := service.users.FindByEmail(ctx, credentials.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("signing in: %w", err)
	}
	if user.PasswordHash == nil {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(credentials.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return Session{UserID: user.ID, Email: user.Email}, nil
}

// deriveKey gives each use of the session secret its own key.
func deriveKey(secret, purpose string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

// IssueToken signs an access token for session that expires after the
// configured TTL.
func (service *AuthService) IssueToken(session Session) (string, error) {
	now := service.now()
	claims := sessionClaims{
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(service.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (service *AuthService) ParseToken(token string) (Session, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return service.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: claims.Subject, Email: claims.Email}, nil
}

// SetSession stores a signed access token for session in the session cookie.
func (service *AuthService) SetSession(w http.ResponseWriter, session Session) (string, error) {
	token, err := service.IssueToken(session)
	if err != nil {
		return "", err
	}

	value, err := service.secureCookie.Encode(SessionCookieName, token)
	if err != nil {
		return "", fmt.Errorf("encoding session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(service.tokenTTL.Seconds()),
	})
	return token, nil
}

func (service *AuthService) GetSession(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return Session{}, fmt.Errorf("no session cookie: %w", ErrUnauthenticated)
	}

	var token string
	if err := service.secureCookie.Decode(SessionCookieName, cookie.Value, &token); err != nil {
		return Session{}, fmt.Errorf("decoding session cookie: %w", ErrInvalidToken)
	}
	return service.ParseToken(token)
}

func (service *AuthService) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// SessionFromRequest resolves the caller from a bearer token, falling back to
// the session cookie.
func (service *AuthService) SessionFromRequest(r *http.Request) (Session, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return Session{}, ErrInvalidToken
		}
		return service.ParseToken(token)
	}
	return service.GetSession(r)
}

func (service *AuthService) OIDCConfigured() bool {
	return service.oauthConfig != nil
}

func (service *AuthService) LoginURL(state string) string {
	if service.oauthConfig == nil {
		return ""
	}
	return service.oauthConfig.AuthCodeURL(state)
}

func (service *AuthService) GenerateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func (service *AuthService) HandleCallback(ctx context.Context, code string) (Session, error) {
	if service.oauthConfig == nil {
		return Session{}, errors.New("OIDC not configured")
	}

	token, err := service.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return Session{}, fmt.Errorf("exchanging code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return Session{}, errors.New("no id_token in response")
	}

	idToken, err := service.oidcVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Session{}, fmt.Errorf("verifying id token: %w", err)
	}

	var claims struct {
		Subject           string `json:"sub"`
		Email             string `json:"email"`
		EmailVerified     bool   `json:"email_verified"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Picture           string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Session{}, fmt.Errorf("parsing claims: %w", err)
	}

	identity := oidcIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		AvatarURL:     claims.Picture,
	}
	if identity.Name == "" {
		identity.Name = claims.PreferredUsername
	}

	user, err := service.provisionOIDCUser(ctx, identity)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: user.ID, Email: user.Email}, nil
}

type oidcIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
}

// provisionOIDCUser finds the account for the subject, links an existing
// account with the same email, or registers a new account with a profile.
// Only an email the provider has verified may claim an existing account.
func (service *AuthService) provisionOIDCUser(ctx context.Context, identity oidcIdentity) (models.User, error) {
	subject, email := identity.Subject, identity.Email
	existing, err := service.users.FindByOIDCSubject(ctx, subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("looking up user: %w", err)
	}

	if email != "" {
		byEmail, err := service.users.FindByEmail(ctx, email)
		if err == nil {
			if !identity.EmailVerified {
				service.logger.Warn().Str("user_id", byEmail.ID).Msg("refused to link OIDC subject with unverified email")
				return models.User{}, fmt.Errorf("linking OIDC account: %w", ErrEmailTaken)
			}
			if err := service.users.LinkOIDCSubject(ctx, byEmail.ID, subject); err != nil {
				return models.User{}, err
			}
			service.logger.Info().Str("user_id", byEmail.ID).Msg("linked OIDC subject to existing account")
			return byEmail, nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("looking up user: %w", err)
		}
	}

	created, err := service.users.Create(ctx, models.User{Email: email, OIDCSubject: &subject})
	if err != nil {
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}
	if _, err := service.profiles.Provision(ctx, created, identity.Name, identity.AvatarURL); err != nil {
		return models.User{}, err
	}

	service.logger.Info().Str("user_id", created.ID).Msg("provisioned new OIDC account")
	return created, nil
}
