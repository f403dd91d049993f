package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/PhilHem/timeremaining/backend/respond"
	"github.com/PhilHem/timeremaining/backend/session"
)

type contextKey int

const (
	emailKey contextKey = iota
	requestIDKey
)

// RequireSession requires a valid session cookie and stores its email in the request context
func RequireSession(issuer *session.Issuer) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			email, err := issuer.FromRequest(r)
			if err != nil {
				slog.Debug("session rejected", "source", "auth", "path", r.URL.Path, "error", err.Error())
				respond.Error(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next(w, r.WithContext(WithEmail(r.Context(), email)))
		}
	}
}

// WithEmail returns a copy of ctx carrying the authenticated email.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// EmailFromContext returns the email set by RequireSession.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}
