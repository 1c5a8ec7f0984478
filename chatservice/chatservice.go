// Package chatservice wires the REST handlers into an HTTP server: account
// lifecycle under /api/auth and messaging under /api/messages.
package chatservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/chatservice/config"
	"github.com/jokkie98/fullstack-chat-app/internal/api"
)

// Wrapper owns the REST API HTTP server.
type Wrapper struct {
	server *http.Server
	logger zerolog.Logger
}

// New assembles the REST routes. Everything past signup/login/logout sits
// behind the session-token middleware.
func New(
	cfg *config.AppConfig,
	authAPI *api.AuthAPI,
	messageAPI *api.MessageAPI,
	authMiddleware func(http.Handler) http.Handler,
	logger zerolog.Logger,
) *Wrapper {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup", authAPI.SignupHandler)
	mux.HandleFunc("POST /api/auth/login", authAPI.LoginHandler)
	mux.HandleFunc("POST /api/auth/logout", authAPI.LogoutHandler)
	mux.Handle("GET /api/auth/check", authMiddleware(http.HandlerFunc(authAPI.CheckAuthHandler)))
	mux.Handle("PUT /api/auth/update-profile", authMiddleware(http.HandlerFunc(authAPI.UpdateProfileHandler)))
	mux.Handle("DELETE /api/auth/delete-account", authMiddleware(http.HandlerFunc(authAPI.DeleteAccountHandler)))

	mux.Handle("GET /api/messages/users", authMiddleware(http.HandlerFunc(messageAPI.ContactsHandler)))
	mux.Handle("GET /api/messages/{id}", authMiddleware(http.HandlerFunc(messageAPI.HistoryHandler)))
	mux.Handle("POST /api/messages/send/{id}", authMiddleware(http.HandlerFunc(messageAPI.SendHandler)))

	return &Wrapper{
		server: &http.Server{
			Addr:    ":" + cfg.APIPort,
			Handler: corsMiddleware(cfg.Cors.AllowedOrigins)(mux),
		},
		logger: logger,
	}
}

// Handler exposes the fully assembled handler chain, for httptest servers.
func (w *Wrapper) Handler() http.Handler { return w.server.Handler }

// Start runs the REST API server until it is shut down.
func (w *Wrapper) Start(_ context.Context) error {
	w.logger.Info().Str("addr", w.server.Addr).Msg("API server starting...")
	if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the REST API server.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info().Msg("Shutting down API server...")
	if err := w.server.Shutdown(ctx); err != nil {
		w.logger.Error().Err(err).Msg("API server shutdown failed.")
		return err
	}
	w.logger.Info().Msg("API server shut down.")
	return nil
}
