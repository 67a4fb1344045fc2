package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix namespaces client environment variables (MEDISUPPLY_GATEWAY_URL, ...).
	EnvPrefix = "MEDISUPPLY"

	EnvAWS   = "aws"
	EnvLocal = "local"

	defaultAWSGateway   = "http://medisupply-alb-656658498.us-east-1.elb.amazonaws.com"
	defaultLocalGateway = "http://192.168.10.5:80"
)

// Config holds the field client settings. Values come from defaults, then an
// optional YAML profile, then environment variables.
type Config struct {
	Stage           string        `yaml:"stage" envconfig:"STAGE"`
	Env             string        `yaml:"env" envconfig:"ENV"`
	GatewayURL      string        `yaml:"gateway_url" envconfig:"GATEWAY_URL"`
	LocalGatewayURL string        `yaml:"local_gateway_url" envconfig:"LOCAL_GATEWAY_URL"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Debug           bool          `yaml:"debug" envconfig:"DEBUG"`
	Locale          string        `yaml:"locale" envconfig:"LOCALE"`
	SessionFile     string        `yaml:"session_file" envconfig:"SESSION_FILE"`
}

// Default returns the built-in client configuration.
func Default() *Config {
	return &Config{
		Stage:       "dev",
		Env:         EnvAWS,
		Timeout:     10 * time.Second,
		Locale:      "es",
		SessionFile: defaultSessionFile(),
	}
}

// Load builds the client configuration. profilePath may be empty; a missing
// profile file is not an error.
func Load(profilePath string) (*Config, error) {
	cfg := Default()

	if profilePath != "" {
		data, err := os.ReadFile(profilePath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read profile: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse profile %s: %w", profilePath, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.Env != EnvAWS && c.Env != EnvLocal {
		return fmt.Errorf("env must be %q or %q, got %q", EnvAWS, EnvLocal, c.Env)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Locale != "es" && c.Locale != "en" {
		return fmt.Errorf("unsupported locale %q", c.Locale)
	}
	return nil
}

// BaseURL resolves the gateway URL for the configured runtime env.
func (c *Config) BaseURL() string {
	if c.Env == EnvLocal {
		if c.LocalGatewayURL != "" {
			return c.LocalGatewayURL
		}
		return defaultLocalGateway
	}
	if c.GatewayURL != "" {
		return c.GatewayURL
	}
	return defaultAWSGateway
}

// IsDev reports whether the stage is the development stage.
func (c *Config) IsDev() bool {
	return c.Stage == "dev"
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".medisupply-session.yaml"
	}
	return filepath.Join(dir, "medisupply", "session.yaml")
}

// GatewayConfig holds the mock gateway settings. Environment names match
// the unprefixed PORT / JWT_SECRET convention.
type GatewayConfig struct {
	Port           string        `envconfig:"PORT" default:"8081"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	SeedFile       string        `envconfig:"SEED_FILE"`
	MinLatency     time.Duration `envconfig:"MIN_LATENCY" default:"300ms"`
	MaxLatency     time.Duration `envconfig:"MAX_LATENCY" default:"1500ms"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8081,http://localhost:19006"`
	SimulateEvery  time.Duration `envconfig:"SIMULATE_EVERY" default:"0s"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadGateway reads the mock gateway configuration from the environment.
func LoadGateway() (*GatewayConfig, error) {
	var cfg GatewayConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if cfg.MinLatency < 0 || cfg.MaxLatency < cfg.MinLatency {
		return nil, fmt.Errorf("invalid latency range [%s, %s]", cfg.MinLatency, cfg.MaxLatency)
	}
	if cfg.SimulateEvery < 0 {
		return nil, errors.New("SIMULATE_EVERY must not be negative")
	}
	return &cfg, nil
}
