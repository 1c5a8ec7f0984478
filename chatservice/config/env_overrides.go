package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// UpdateConfigWithEnvOverrides takes the base configuration (created from
// YAML) and completes it by applying environment variables and final
// validation. Environment always wins over the file.
func UpdateConfigWithEnvOverrides(cfg *AppConfig, logger zerolog.Logger) (*AppConfig, error) {
	logger.Debug().Msg("Applying environment variable overrides...")

	overrides := []struct {
		key    string
		target *string
	}{
		{"RUN_MODE", &cfg.RunMode},
		{"API_PORT", &cfg.APIPort},
		{"WEBSOCKET_PORT", &cfg.WebSocketPort},
		{"JWT_SECRET", &cfg.JWTSecret},
		{"MONGO_URI", &cfg.Mongo.URI},
		{"MONGO_DATABASE", &cfg.Mongo.Database},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			logger.Debug().Str("key", o.key).Str("source", "env").Msg("Overriding config value")
			*o.target = v
		}
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug().Str("key", "CORS_ALLOWED_ORIGINS").Str("source", "env").Msg("Overriding config value")
		var cleanOrigins []string
		for _, o := range strings.Split(corsOrigins, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.Cors.AllowedOrigins = cleanOrigins
	}

	// Final validation. Local mode runs on in-memory fakes and a dev
	// secret, so the external requirements only apply outside it.
	if cfg.APIPort == "" {
		return nil, fmt.Errorf("API_PORT is not set in config or env var")
	}
	if cfg.WebSocketPort == "" {
		return nil, fmt.Errorf("WEBSOCKET_PORT is not set in config or env var")
	}
	if cfg.RunMode != "local" {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is not set in config or env var")
		}
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("MONGO_URI is not set in config or env var")
		}
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "chat"
	}

	logger.Debug().Msg("Configuration finalized and validated successfully")
	return cfg, nil
}
