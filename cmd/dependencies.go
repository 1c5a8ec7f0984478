package cmd

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jokkie98/fullstack-chat-app/internal/test/fakes"
	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// Dependencies holds the external collaborators the service needs to operate.
type Dependencies struct {
	Accounts chat.AccountStore
	Messages chat.MessageStore
	// Close releases any underlying connections.
	Close func(ctx context.Context) error
}

// NewFakeDependencies builds in-memory stores for the local run mode, where
// no external services are available.
func NewFakeDependencies(logger zerolog.Logger) *Dependencies {
	logger.Warn().Msg("Running in 'local' mode. All external dependencies will be faked.")
	return &Dependencies{
		Accounts: fakes.NewAccountStore(),
		Messages: fakes.NewMessageStore(),
		Close:    func(context.Context) error { return nil },
	}
}
