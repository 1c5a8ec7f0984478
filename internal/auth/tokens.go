// Package auth implements session token issue and verification plus the HTTP
// middleware that guards the REST routes. The same HS256 token authenticates
// both the REST API and the real-time handshake.
package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// CookieName is the session cookie the REST layer issues and clears.
const CookieName = "jwt"

// DefaultSessionTTL matches the 7-day expiry of the login flow.
const DefaultSessionTTL = 7 * 24 * time.Hour

// sessionClaims is the token body: a registered claim set plus the account ID.
type sessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Issuer signs session tokens with the shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer. A non-positive ttl falls back to
// DefaultSessionTTL.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Issuer{secret: secret, ttl: ttl}
}

// Issue signs a new session token for the given account.
func (i *Issuer) Issue(id chat.UserID) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID: id.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// TTL returns the configured session lifetime, for cookie expiry.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// SetSessionCookie writes the session token as an HttpOnly cookie.
func (i *Issuer) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(i.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
