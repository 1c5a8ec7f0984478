package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// Registry is the in-memory mapping of account ID to that account's live
// connection handles. It is the only shared mutable state in the real-time
// core; one mutex covers register, deregister, and every read so a presence
// snapshot can never observe a half-applied mutation.
//
// A user with no handles is absent from the map entirely: "is online" reduces
// to "is a key present". Multiple handles per user model multi-device use.
type Registry struct {
	mu     sync.Mutex
	conns  map[chat.UserID]map[*Connection]struct{}
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		conns:  make(map[chat.UserID]map[*Connection]struct{}),
		logger: logger.With().Str("component", "Registry").Logger(),
	}
}

// Register adds a handle to its owner's set, creating the set if absent.
// Registering the same handle twice has no additional effect.
func (r *Registry) Register(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.userID]
	if !ok {
		set = make(map[*Connection]struct{})
		r.conns[c.userID] = set
	}
	set[c] = struct{}{}
	r.logger.Debug().Str("user", c.userID.String()).Int("handles", len(set)).Msg("Connection registered")
}

// Deregister removes a handle; when the owner's set empties, the owner is
// removed from the map. Deregistering an unknown handle is a no-op, which
// tolerates the race between transport-detected close and explicit logout.
func (r *Registry) Deregister(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, c.userID)
	}
	r.logger.Debug().Str("user", c.userID.String()).Int("handles", len(set)).Msg("Connection deregistered")
}

// HandlesFor returns the live handles of one user, possibly none.
func (r *Registry) HandlesFor(id chat.UserID) []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.conns[id]
	if len(set) == 0 {
		return nil
	}
	handles := make([]*Connection, 0, len(set))
	for c := range set {
		handles = append(handles, c)
	}
	return handles
}

// OnlineUsers returns every user with at least one live handle.
func (r *Registry) OnlineUsers() []chat.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineLocked()
}

// Snapshot returns the online-user set together with every live handle,
// captured under one lock acquisition so the broadcaster's recipients always
// match the set it publishes.
func (r *Registry) Snapshot() ([]chat.UserID, []*Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var handles []*Connection
	for _, set := range r.conns {
		for c := range set {
			handles = append(handles, c)
		}
	}
	return r.onlineLocked(), handles
}

func (r *Registry) onlineLocked() []chat.UserID {
	online := make([]chat.UserID, 0, len(r.conns))
	for id := range r.conns {
		online = append(online, id)
	}
	return online
}

// CloseAll force-closes every live handle. Each handle's own lifecycle then
// deregisters it; the registry is reconstructible from zero after restart.
func (r *Registry) CloseAll() {
	_, handles := r.Snapshot()
	for _, c := range handles {
		c.Close()
	}
	r.logger.Info().Int("count", len(handles)).Msg("Closed all live connections")
}
