package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

type contextKey struct{}

var userIDKey = contextKey{}

// UserIDFromContext returns the authenticated account ID placed in the
// request context by Middleware.
func UserIDFromContext(ctx context.Context) (chat.UserID, bool) {
	id, ok := ctx.Value(userIDKey).(chat.UserID)
	return id, ok
}

// ContextWithUserID injects an account ID, for handler tests.
func ContextWithUserID(ctx context.Context, id chat.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// TokenFromRequest extracts the session token from the jwt cookie or, failing
// that, from a Bearer Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Middleware wraps a handler so only requests carrying a verifiable session
// token reach it. The verified account ID is placed in the request context.
func Middleware(verifier *Verifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := verifier.Verify(r.Context(), TokenFromRequest(r))
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, ErrUnknownUser) {
					status = http.StatusNotFound
				}
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected request")
				http.Error(w, http.StatusText(status), status)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}
