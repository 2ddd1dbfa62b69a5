package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for gallery-sync.
type Config struct {
	// Base URL of the photo store API, e.g. https://photos.example.com.
	ServerURL string `env:"GALLERY_SERVER_URL"`

	// Account credentials. Only needed when no cached session token is
	// valid; the token cache lives in the local state database.
	Email    string `env:"GALLERY_EMAIL"`
	Password string `env:"GALLERY_PASSWORD"`

	// Device name this client identifies as. Defaults to system hostname.
	DeviceName string `env:"DEVICE_NAME"`

	// EnableEvents controls the websocket change feed. When disabled the
	// session only refreshes after its own mutations.
	EnableEvents bool `env:"GALLERY_EVENTS" envDefault:"true"`

	// SettingsPath points at the YAML user settings file. Defaults to
	// ~/.gallery-sync/settings.yaml when empty.
	SettingsPath string `env:"GALLERY_SETTINGS_PATH"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DeviceName == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "gallery-sync"
		}

		cfg.DeviceName = hostname
	}

	if cfg.SettingsPath == "" {
		path, err := defaultSettingsPath()
		if err != nil {
			return nil, err
		}

		cfg.SettingsPath = path
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("GALLERY_SERVER_URL is required")
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("GALLERY_SERVER_URL %q is not an absolute URL", c.ServerURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("GALLERY_SERVER_URL scheme must be http or https, got %q", u.Scheme)
	}

	return nil
}

// EventsURL derives the websocket endpoint from the server URL.
func (c *Config) EventsURL() string {
	u, _ := url.Parse(c.ServerURL)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	u.Path = "/events"

	return u.String()
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".gallery-sync", "settings.yaml"), nil
}
