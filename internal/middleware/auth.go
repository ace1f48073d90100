package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/services"
)

type SessionResolver interface {
	SessionFromRequest(r *http.Request) (services.Session, error)
}

// RequireAuth resolves the caller's session and places it in the request
// context, answering 401 when there is none.
func RequireAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := resolver.SessionFromRequest(r)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
				return
			}

			ctx := services.WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
