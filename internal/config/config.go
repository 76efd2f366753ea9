package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// State backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// DisabledAppLog turns off the append-only application log file.
const DisabledAppLog = "-"

type Config struct {
	// API access
	ClientID     string        `toml:"client_id" env:"EVCOLLECT_CLIENT_ID"`         // required (falls back to TWOSENSE_API_CLIENT_ID)
	ClientSecret string        `toml:"client_secret" env:"EVCOLLECT_CLIENT_SECRET"` // required (falls back to TWOSENSE_API_CLIENT_SECRET)
	EventsURL    string        `toml:"events_url" env:"EVCOLLECT_EVENTS_URL"`
	TokenURL     string        `toml:"token_url" env:"EVCOLLECT_TOKEN_URL"`
	Audience     string        `toml:"audience" env:"EVCOLLECT_AUDIENCE"`
	HTTPTimeout  time.Duration `toml:"http_timeout" env:"EVCOLLECT_HTTP_TIMEOUT"` // 0 = no timeout
	PageRate     float64       `toml:"page_rate" env:"EVCOLLECT_PAGE_RATE"`       // pages per second, 0 = unlimited

	// Local files
	EventLog     string `toml:"event_log" env:"EVCOLLECT_EVENT_LOG"`
	StateFile    string `toml:"state_file" env:"EVCOLLECT_STATE_FILE"`
	StateBackend string `toml:"state_backend" env:"EVCOLLECT_STATE_BACKEND"` // "file" or "bolt"
	AppLog       string `toml:"app_log" env:"EVCOLLECT_APP_LOG"`             // "-" disables

	// NATS sink (enabled when NATSURL is set)
	NATSURL     string `toml:"nats_url" env:"EVCOLLECT_NATS_URL"`
	NATSSubject string `toml:"nats_subject" env:"EVCOLLECT_NATS_SUBJECT"`

	// S3 sink (enabled when S3Bucket is set)
	S3Bucket   string `toml:"s3_bucket" env:"EVCOLLECT_S3_BUCKET"`
	S3Key      string `toml:"s3_key" env:"EVCOLLECT_S3_KEY"`
	S3Region   string `toml:"s3_region" env:"EVCOLLECT_S3_REGION"`
	S3Endpoint string `toml:"s3_endpoint" env:"EVCOLLECT_S3_ENDPOINT"` // custom endpoint for MinIO

	// Git sink (enabled when GitRepo is set; path to an existing clone)
	GitRepo   string `toml:"git_repo" env:"EVCOLLECT_GIT_REPO"`
	GitFile   string `toml:"git_file" env:"EVCOLLECT_GIT_FILE"`
	GitBranch string `toml:"git_branch" env:"EVCOLLECT_GIT_BRANCH"`

	// Postgres archive (enabled when DatabaseURL is set)
	DatabaseURL string `toml:"database_url" env:"EVCOLLECT_DATABASE_URL"`

	// Metrics push (enabled when PushgatewayURL is set)
	PushgatewayURL string `toml:"pushgateway_url" env:"EVCOLLECT_PUSHGATEWAY_URL"`
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		EventsURL:    "https://webapi.twosense.ai/events",
		TokenURL:     "https://webapi.twosense.ai/oauth/token",
		Audience:     "https://webapi.twosense.ai",
		EventLog:     "events.json",
		StateFile:    "state.json",
		StateBackend: BackendFile,
		AppLog:       "app.log",
		NATSSubject:  "evcollect.events",
		S3Key:        "evcollect/events.json",
		S3Region:     "us-east-1",
		GitFile:      "events.json",
		GitBranch:    "main",
	}
}

// Load builds the configuration from defaults, the optional TOML file at path
// (or EVCOLLECT_CONFIG when path is empty) and the environment, in that order
// of increasing precedence.
func Load(path string) (*Config, error) {
	c := Default()

	if path == "" {
		path = os.Getenv("EVCOLLECT_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if c.ClientID == "" {
		c.ClientID = os.Getenv("TWOSENSE_API_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		c.ClientSecret = os.Getenv("TWOSENSE_API_CLIENT_SECRET")
	}

	return c, nil
}

// Validate reports configuration that would make a collection run fail.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("EVCOLLECT_CLIENT_ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("EVCOLLECT_CLIENT_SECRET is required")
	}
	if c.EventsURL == "" {
		return fmt.Errorf("EVCOLLECT_EVENTS_URL is required")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("EVCOLLECT_TOKEN_URL is required")
	}
	switch c.StateBackend {
	case BackendFile, BackendBolt:
	default:
		return fmt.Errorf("EVCOLLECT_STATE_BACKEND: unknown backend %q (must be file or bolt)", c.StateBackend)
	}
	if c.PageRate < 0 {
		return fmt.Errorf("EVCOLLECT_PAGE_RATE must not be negative")
	}
	return nil
}

// AppLogEnabled reports whether the application log file should be written.
func (c *Config) AppLogEnabled() bool {
	return c.AppLog != "" && c.AppLog != DisabledAppLog
}
