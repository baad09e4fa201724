package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Default remote endpoints for the hosted LiveChat API.
const (
	DefaultAuthURL    = "https://accounts.livechat.com/"
	DefaultTokenURL   = "https://accounts.livechat.com/v2/token"
	DefaultArchiveURL = "https://api.livechatinc.com/v3.5/agent/action/list_archives"
)

// Config holds all process configuration, read from CHATVAULT_* environment
// variables (a .env file is loaded first when present).
type Config struct {
	ClientID     string `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"CLIENT_SECRET" required:"true"`
	RedirectURI  string `envconfig:"REDIRECT_URI" default:"http://localhost:8088/callback"`

	ListenAddr string `envconfig:"LISTEN_ADDR" default:"localhost:8088"`
	DBPath     string `envconfig:"DB_PATH" default:"chatvault.db"`

	ArchiveRawPayloads bool   `envconfig:"ARCHIVE_RAW_PAYLOADS" default:"false"`
	ArchiveDir         string `envconfig:"ARCHIVE_DIR" default:"raw_pages"`

	PageLimit   int           `envconfig:"PAGE_LIMIT" default:"100"`
	PageDelay   time.Duration `envconfig:"PAGE_DELAY" default:"5s"`
	MinMessages int           `envconfig:"MIN_MESSAGES" default:"0"`

	ErrorLogFile string `envconfig:"ERROR_LOG_FILE" default:"chatvault_errors.log"`

	// EndpointsFile optionally points at a YAML file overriding the remote
	// endpoint URLs, for staging hosts or tests.
	EndpointsFile string `envconfig:"ENDPOINTS_FILE"`

	Endpoints Endpoints `ignored:"true"`
}

// Endpoints are the remote URLs the ingester talks to.
type Endpoints struct {
	AuthURL    string `yaml:"auth_url"`
	TokenURL   string `yaml:"token_url"`
	ArchiveURL string `yaml:"archive_url"`
}

// Load reads configuration from the environment, loading a .env file first
// if one exists, then applies the optional endpoints override file.
func Load() (*Config, error) {
	// Best effort: running without a .env file is fine.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CHATVAULT", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.Endpoints = Endpoints{
		AuthURL:    DefaultAuthURL,
		TokenURL:   DefaultTokenURL,
		ArchiveURL: DefaultArchiveURL,
	}
	if cfg.EndpointsFile != "" {
		if err := cfg.loadEndpointsFile(); err != nil {
			return nil, err
		}
	}

	if cfg.PageLimit < 1 || cfg.PageLimit > 100 {
		return nil, fmt.Errorf("page limit %d out of range (1-100)", cfg.PageLimit)
	}

	return &cfg, nil
}

func (c *Config) loadEndpointsFile() error {
	data, err := os.ReadFile(c.EndpointsFile)
	if err != nil {
		return fmt.Errorf("read endpoints file: %w", err)
	}
	var override Endpoints
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parse endpoints file: %w", err)
	}
	if override.AuthURL != "" {
		c.Endpoints.AuthURL = override.AuthURL
	}
	if override.TokenURL != "" {
		c.Endpoints.TokenURL = override.TokenURL
	}
	if override.ArchiveURL != "" {
		c.Endpoints.ArchiveURL = override.ArchiveURL
	}
	return nil
}
