package realtime

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// Broadcaster publishes the current online-user set to every live connection
// after each registry change. Snapshots are computed fresh each time; there is
// no diffing, debouncing, or batching.
type Broadcaster struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewBroadcaster creates a broadcaster over the given registry.
func NewBroadcaster(registry *Registry, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger.With().Str("component", "Broadcaster").Logger(),
	}
}

// Publish pushes a getOnlineUsers frame carrying the full online set to every
// registered handle. Callers invoke it after registration or deregistration
// completes, so a freshly connected client always observes a snapshot that
// includes itself. A failed push to one handle never aborts the rest.
func (b *Broadcaster) Publish() {
	online, handles := b.registry.Snapshot()

	frame, err := chat.NewFrame(chat.EventOnlineUsers, online)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to encode presence frame")
		return
	}

	for _, c := range handles {
		if err := c.Send(frame); err != nil && !errors.Is(err, ErrConnectionClosed) {
			b.logger.Warn().Err(err).Str("user", c.userID.String()).Str("conn", c.id).
				Msg("Failed to push presence frame")
		}
	}
	b.logger.Debug().Int("online", len(online)).Int("handles", len(handles)).Msg("Presence published")
}
