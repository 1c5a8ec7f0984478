package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jokkie98/fullstack-chat-app/chatservice"
	"github.com/jokkie98/fullstack-chat-app/chatservice/config"
	"github.com/jokkie98/fullstack-chat-app/cmd"
	"github.com/jokkie98/fullstack-chat-app/internal/api"
	"github.com/jokkie98/fullstack-chat-app/internal/app"
	"github.com/jokkie98/fullstack-chat-app/internal/auth"
	"github.com/jokkie98/fullstack-chat-app/internal/platform/persistence"
	"github.com/jokkie98/fullstack-chat-app/internal/realtime"
)

// localDevSecret signs tokens in local mode only; prod requires JWT_SECRET.
const localDevSecret = "local-dev-secret"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.With().Str("service", "fullstack-chat-app").Logger()

	cfg, err := cmd.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg, err = config.UpdateConfigWithEnvOverrides(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to finalize configuration")
	}

	ctx := context.Background()
	deps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize dependencies")
	}
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to close dependencies")
		}
	}()

	secret := []byte(cfg.JWTSecret)
	if cfg.RunMode == "local" && len(secret) == 0 {
		secret = []byte(localDevSecret)
	}
	verifier := auth.NewVerifier(secret, deps.Accounts)
	issuer := auth.NewIssuer(secret, auth.DefaultSessionTTL)

	// The registry is the single shared state of the real-time core; the
	// broadcaster, router, and manager all operate on this one instance.
	registry := realtime.NewRegistry(logger)
	presence := realtime.NewBroadcaster(registry, logger)
	router := realtime.NewRouter(registry, logger)

	connManager, err := realtime.NewManager(
		cfg.WebSocketPort,
		verifier,
		registry,
		presence,
		cfg.Cors.AllowedOrigins,
		logger.With().Str("component", "ConnManager").Logger(),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Connection Manager")
	}

	authMiddleware := auth.Middleware(verifier, logger)
	authAPI := api.NewAuthAPI(deps.Accounts, issuer, verifier, connManager, logger)
	messageAPI := api.NewMessageAPI(deps.Accounts, deps.Messages, router, logger)

	apiService := chatservice.New(
		cfg,
		authAPI,
		messageAPI,
		authMiddleware,
		logger.With().Str("component", "ApiService").Logger(),
	)

	app.Run(ctx, logger, apiService, connManager)
}

// newDependencies builds the store dependencies for the configured run mode.
func newDependencies(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*cmd.Dependencies, error) {
	if cfg.RunMode == "local" {
		return cmd.NewFakeDependencies(logger), nil
	}

	client, err := persistence.Connect(ctx, cfg.Mongo.URI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	db := client.Database(cfg.Mongo.Database)

	accounts, err := persistence.NewMongoAccountStore(ctx, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create account store: %w", err)
	}
	messages, err := persistence.NewMongoMessageStore(ctx, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create message store: %w", err)
	}

	return &cmd.Dependencies{
		Accounts: accounts,
		Messages: messages,
		Close:    client.Disconnect,
	}, nil
}
