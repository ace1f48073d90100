package handlers

import (
	"errors"
	"net/http"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
	"github.com/rs/zerolog"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

func NewAuthHandler(authService *services.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type sessionResponse struct {
	services.Session
	Token string `json:"token,omitempty"`
}

func (handler *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var credentials services.Credentials
	if err := decodeJSON(w, r, &credentials); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	session, err := handler.authService.SignUp(r.Context(), credentials)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	handler.startSession(w, http.StatusCreated, session)
}

func (handler *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var credentials services.Credentials
	if err := decodeJSON(w, r, &credentials); err != nil {
		writeError(w, handler.logger, err)
		return
	}

	session, err := handler.authService.SignIn(r.Context(), credentials)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	handler.startSession(w, http.StatusOK, session)
}

func (handler *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	handler.authService.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (handler *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := handler.authService.SessionFromRequest(r)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

func (handler *AuthHandler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if !handler.authService.OIDCConfigured() {
		writeMessage(w, http.StatusServiceUnavailable, "OIDC not configured")
		return
	}

	state, err := handler.authService.GenerateState()
	if err != nil {
		handler.logger.Error().Err(err).Msg("generating state")
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, handler.authService.LoginURL(state), http.StatusFound)
}

func (handler *AuthHandler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "missing state cookie")
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		writeMessage(w, http.StatusBadRequest, "invalid state")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeMessage(w, http.StatusBadRequest, "missing code")
		return
	}

	session, err := handler.authService.HandleCallback(r.Context(), code)
	if errors.Is(err, services.ErrEmailTaken) {
		writeMessage(w, http.StatusConflict, "email belongs to an existing account; sign in with a password")
		return
	}
	if err != nil {
		handler.logger.Error().Err(err).Msg("handling OIDC callback")
		writeMessage(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	if _, err := handler.authService.SetSession(w, session); err != nil {
		handler.logger.Error().Err(err).Msg("setting session")
		writeMessage(w, http.StatusInternalServerError, "session error")
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// startSession sets the session cookie and also returns the token for
// clients that send it as a bearer token.
func (handler *AuthHandler) startSession(w http.ResponseWriter, status int, session services.Session) {
	token, err := handler.authService.SetSession(w, session)
	if err != nil {
		writeError(w, handler.logger, err)
		return
	}
	writeJSON(w, status, sessionResponse{Session: session, Token: token})
}
