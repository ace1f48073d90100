package services

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned by every service operation that runs without
// a signed-in account. It is always returned before the backend is contacted.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session identifies the signed-in account. Services only read it.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type SessionSource interface {
	Current(ctx context.Context) (Session, error)
}

type sessionKey struct{}

func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(Session)
	return session, ok && session.UserID != ""
}

// ContextSessions resolves the session that request middleware stored in the
// context.
type ContextSessions struct{}

func (ContextSessions) Current(ctx context.Context) (Session, error) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return Session{}, ErrUnauthenticated
	}
	return session, nil
}

// StaticSessions always resolves to the same session; a nil Session means
// signed out.
type StaticSessions struct {
	Session *Session
}

func (sessions StaticSessions) Current(context.Context) (Session, error) {
	if sessions.Session == nil || sessions.Session.UserID == "" {
		return Session{}, ErrUnauthenticated
	}
	return *sessions.Session, nil
}
