package realtime

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// Router delivers stored messages to the recipient's live connections. It is
// a pure lookup-and-fan-out step: it never writes to the registry and never
// persists anything. The REST layer invokes it once per message, strictly
// after the store reports the record durable.
type Router struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry, logger zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   logger.With().Str("component", "Router").Logger(),
	}
}

var _ chat.MessageDeliverer = (*Router)(nil)

// Route pushes a newMessage frame to every live handle of the recipient.
// An offline recipient is routine: nothing is delivered or queued, and no
// error surfaces; the recipient fetches history on reconnect.
// Delivery is fire-and-forget per handle; one failure never blocks the rest.
func (r *Router) Route(_ context.Context, event chat.OutboundMessageEvent) {
	handles := r.registry.HandlesFor(event.RecipientID)
	if len(handles) == 0 {
		r.logger.Debug().Str("recipient", event.RecipientID.String()).Msg("Recipient offline, nothing to deliver")
		return
	}

	frame, err := chat.NewFrame(chat.EventNewMessage, event.Message)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode message frame")
		return
	}

	for _, c := range handles {
		if err := c.Send(frame); err != nil {
			r.logger.Warn().Err(err).Str("recipient", event.RecipientID.String()).Str("conn", c.id).
				Msg("Failed to push message frame")
		}
	}
	r.logger.Debug().Str("recipient", event.RecipientID.String()).Int("handles", len(handles)).
		Msg("Message routed")
}
