package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/internal/auth"
	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// Manager runs the WebSocket server and drives each connection through its
// lifecycle: handshake verification, registration plus presence publish,
// steady-state pushes, and deregistration plus presence publish on close.
type Manager struct {
	server     *http.Server
	upgrader   websocket.Upgrader
	verifier   *auth.Verifier
	registry   *Registry
	presence   *Broadcaster
	logger     zerolog.Logger
	instanceID string
	wg         sync.WaitGroup
}

// NewManager wires up a connection manager with its own HTTP server listening
// on the given port. The registry and broadcaster are constructed by the
// caller and shared with the message router.
func NewManager(
	port string,
	verifier *auth.Verifier,
	registry *Registry,
	presence *Broadcaster,
	allowedOrigins []string,
	logger zerolog.Logger,
) (*Manager, error) {
	if verifier == nil || registry == nil || presence == nil {
		return nil, errors.New("verifier, registry, and broadcaster are required")
	}

	instanceID := uuid.NewString()
	m := &Manager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		verifier:   verifier,
		registry:   registry,
		presence:   presence,
		logger:     logger.With().Str("component", "ConnectionManager").Str("instance", instanceID).Logger(),
		instanceID: instanceID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", m.connectHandler)
	m.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	return m, nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Start runs the WebSocket HTTP server until it is shut down.
func (m *Manager) Start(_ context.Context) error {
	m.logger.Info().Str("addr", m.server.Addr).Msg("WebSocket server starting...")
	if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting handshakes, force-closes every live connection,
// and waits for their lifecycles to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info().Msg("Shutting down WebSocket service...")

	// Close handles first: the server's Shutdown waits for in-flight
	// handlers, and every live connection is an in-flight handler.
	m.registry.CloseAll()

	err := m.server.Shutdown(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("WebSocket server shutdown failed.")
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info().Msg("WebSocket service shut down.")
	case <-ctx.Done():
		m.logger.Warn().Msg("Timed out waiting for connection lifecycles to finish.")
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// CloseUser force-closes every live connection of one user. The REST layer
// calls it after logout or account deletion; each closed transport then runs
// its own deregister-and-publish path.
func (m *Manager) CloseUser(id chat.UserID) {
	handles := m.registry.HandlesFor(id)
	for _, c := range handles {
		c.Close()
	}
	if len(handles) > 0 {
		m.logger.Info().Str("user", id.String()).Int("count", len(handles)).Msg("Force-closed user connections")
	}
}

var _ chat.ConnectionCloser = (*Manager)(nil)

// connectHandler authenticates the handshake, upgrades the transport, and
// runs the connection's lifecycle until disconnect.
func (m *Manager) connectHandler(w http.ResponseWriter, r *http.Request) {
	// The realtime transport has no per-message headers, so the token rides
	// in the handshake query (with the REST cookie as a fallback for
	// same-origin browsers).
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.TokenFromRequest(r)
	}

	userID, err := m.verifier.Verify(r.Context(), token)
	if err != nil {
		// A rejected handshake never touches the registry.
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrUnknownUser) {
			status = http.StatusNotFound
		}
		m.logger.Debug().Err(err).Msg("Handshake rejected")
		http.Error(w, http.StatusText(status), status)
		return
	}

	// A claimed identity that contradicts the token subject is a spoof
	// attempt, not a malformed request.
	if claimed := r.URL.Query().Get("userId"); claimed != "" && claimed != userID.String() {
		m.logger.Warn().Str("claimed", claimed).Str("subject", userID.String()).
			Msg("Handshake identity mismatch")
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to upgrade connection.")
		return
	}

	conn := newConnection(userID, ws, m.logger)

	m.registry.Register(conn)
	m.presence.Publish()
	m.logger.Info().Str("user", userID.String()).Str("conn", conn.id).Msg("User connected via WebSocket.")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		conn.writePump()
	}()

	m.readLoop(conn)

	conn.Close()
	m.registry.Deregister(conn)
	m.presence.Publish()
	m.logger.Info().Str("user", userID.String()).Str("conn", conn.id).Msg("User disconnected.")
}

// readLoop consumes inbound frames only to detect disconnect; the core
// requires no client-originated events beyond transport keepalive.
func (m *Manager) readLoop(c *Connection) {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	}
}
