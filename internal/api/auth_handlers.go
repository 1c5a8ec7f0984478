package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jokkie98/fullstack-chat-app/internal/auth"
	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

const bcryptCost = 10

// AuthAPI holds the dependencies for the account lifecycle handlers.
type AuthAPI struct {
	accounts chat.AccountStore
	issuer   *auth.Issuer
	verifier *auth.Verifier
	closer   chat.ConnectionCloser
	logger   zerolog.Logger
}

// NewAuthAPI creates the account handler set. The closer lets logout and
// account deletion force-close any live real-time connections so a gone
// account does not linger as online.
func NewAuthAPI(
	accounts chat.AccountStore,
	issuer *auth.Issuer,
	verifier *auth.Verifier,
	closer chat.ConnectionCloser,
	logger zerolog.Logger,
) *AuthAPI {
	return &AuthAPI{
		accounts: accounts,
		issuer:   issuer,
		verifier: verifier,
		closer:   closer,
		logger:   logger.With().Str("component", "AuthAPI").Logger(),
	}
}

type signupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupHandler creates a new account and issues a session token.
func (a *AuthAPI) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "please fill all fields")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if !isStrongPassword(req.Password) {
		writeError(w, http.StatusBadRequest,
			"password must be at least 6 characters and include a mix of letters and numbers")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to hash password")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now()
	user := &chat.User{
		ID:        chat.UserID(uuid.NewString()),
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.accounts.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, chat.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		a.logger.Error().Err(err).Msg("Failed to create user")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !a.issueSession(w, user.ID) {
		return
	}
	a.logger.Info().Str("user", user.ID.String()).Msg("User signed up")
	writeJSON(w, http.StatusCreated, "user added", user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler checks credentials and issues a session token.
func (a *AuthAPI) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := a.accounts.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, chat.ErrUserNotFound) {
			a.logger.Error().Err(err).Msg("Account lookup failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !a.issueSession(w, user.ID) {
		return
	}
	a.logger.Info().Str("user", user.ID.String()).Msg("User logged in")
	writeJSON(w, http.StatusOK, "user logged in", user)
}

// LogoutHandler clears the session cookie and force-closes the caller's live
// connections. It works even with a stale token: the cookie is always
// cleared.
func (a *AuthAPI) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if userID, err := a.verifier.Verify(r.Context(), auth.TokenFromRequest(r)); err == nil {
		a.closer.CloseUser(userID)
	}
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, "logged out successfully", nil)
}

// CheckAuthHandler returns the authenticated account, for session refresh on
// the client.
func (a *AuthAPI) CheckAuthHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}
	user, err := a.accounts.UserByID(r.Context(), userID)
	if err != nil {
		a.logger.Error().Err(err).Str("user", userID.String()).Msg("Account lookup failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, "successfully authenticated", user)
}

type updateProfileRequest struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic"`
}

// UpdateProfileHandler applies partial profile updates. The avatar is stored
// as an opaque reference; upload pipelines live outside this service.
func (a *AuthAPI) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email != "" && !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	user, err := a.accounts.UserByID(r.Context(), userID)
	if err != nil {
		a.logger.Error().Err(err).Str("user", userID.String()).Msg("Account lookup failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.ProfilePic != "" {
		user.ProfilePic = req.ProfilePic
	}
	user.UpdatedAt = time.Now()

	if err := a.accounts.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, chat.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		a.logger.Error().Err(err).Str("user", userID.String()).Msg("Failed to update profile")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, "update successful", user)
}

// DeleteAccountHandler removes the account, clears the session cookie, and
// force-closes the account's live connections.
func (a *AuthAPI) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}
	if err := a.accounts.DeleteUser(r.Context(), userID); err != nil {
		a.logger.Error().Err(err).Str("user", userID.String()).Msg("Failed to delete account")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// The token is now a dangling credential; close the transports so the
	// deleted account drops out of presence immediately.
	a.closer.CloseUser(userID)
	auth.ClearSessionCookie(w)
	a.logger.Info().Str("user", userID.String()).Msg("Account deleted")
	writeJSON(w, http.StatusOK, "account deleted successfully", nil)
}

func (a *AuthAPI) issueSession(w http.ResponseWriter, id chat.UserID) bool {
	token, err := a.issuer.Issue(id)
	if err != nil {
		a.logger.Error().Err(err).Str("user", id.String()).Msg("Failed to issue session token")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	a.issuer.SetSessionCookie(w, token)
	return true
}
