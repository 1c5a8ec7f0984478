package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// Rejection categories surfaced by Verify. All of them mean the caller must
// re-authenticate through the REST login flow.
var (
	ErrTokenMissing = errors.New("no session token provided")
	ErrTokenInvalid = errors.New("session token invalid")
	ErrTokenExpired = errors.New("session token expired")
	ErrUnknownUser  = errors.New("token subject no longer exists")
)

// Verifier validates session tokens against the shared secret and confirms
// the token's subject still resolves to an account. It has no side effects.
type Verifier struct {
	secret   []byte
	accounts chat.AccountStore
}

// NewVerifier creates a Verifier backed by the given account store.
func NewVerifier(secret []byte, accounts chat.AccountStore) *Verifier {
	return &Verifier{secret: secret, accounts: accounts}
}

// Verify checks the raw token and returns the embedded account ID.
// The account lookup makes a deleted account an additional rejection
// condition even while its token is otherwise still valid.
func (v *Verifier) Verify(ctx context.Context, raw string) (chat.UserID, error) {
	if raw == "" {
		return "", ErrTokenMissing
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
	default:
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing userId claim", ErrTokenInvalid)
	}
	userID := chat.UserID(claims.UserID)

	if _, err := v.accounts.UserByID(ctx, userID); err != nil {
		if errors.Is(err, chat.ErrUserNotFound) {
			return "", ErrUnknownUser
		}
		return "", fmt.Errorf("account lookup failed: %w", err)
	}

	return userID, nil
}
