// Package config defines the two-stage configuration for the chat service:
// the raw YAML shape, the canonical AppConfig, and the environment overrides
// that finalize it.
package config

// --- YAML-Specific Structs ---

type YamlMongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// YamlConfig defines the structure for unmarshaling the embedded config.yaml file.
type YamlConfig struct {
	RunMode       string          `yaml:"run_mode"`
	APIPort       string          `yaml:"api_port"`
	WebSocketPort string          `yaml:"websocket_port"`
	JWTSecret     string          `yaml:"jwt_secret"`
	Mongo         YamlMongoConfig `yaml:"mongo"`
	Cors          YamlCorsConfig  `yaml:"cors"`
}

// AppConfig is the canonical, validated configuration object used throughout
// the application. It is created by NewConfigFromYaml (Stage 1) and finalized
// by UpdateConfigWithEnvOverrides (Stage 2).
type AppConfig struct {
	RunMode       string
	APIPort       string
	WebSocketPort string
	JWTSecret     string
	Mongo         YamlMongoConfig
	Cors          YamlCorsConfig
}

// NewConfigFromYaml converts the raw unmarshaled data into a base AppConfig,
// without environment overrides.
func NewConfigFromYaml(yamlCfg *YamlConfig) (*AppConfig, error) {
	return &AppConfig{
		RunMode:       yamlCfg.RunMode,
		APIPort:       yamlCfg.APIPort,
		WebSocketPort: yamlCfg.WebSocketPort,
		JWTSecret:     yamlCfg.JWTSecret,
		Mongo:         yamlCfg.Mongo,
		Cors:          yamlCfg.Cors,
	}, nil
}
