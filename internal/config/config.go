package config

import (
	"time"

	"github.com/btouchard/lumeo/internal/layout"
)

// Config is the root configuration for Lumeo.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Hub      HubConfig      `yaml:"hub"`
	API      APIConfig      `yaml:"api"`
	Image    ImageConfig    `yaml:"image"`
	Layout   layout.Config  `yaml:"layout"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	DevHub   DevHubConfig   `yaml:"dev_hub"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	APIToken string `yaml:"api_token"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	MCP      bool   `yaml:"mcp"`
	Metrics  bool   `yaml:"metrics"`
}

// HubConfig describes the server-push hub the client subscribes to.
// An empty URL disables live notifications.
type HubConfig struct {
	URL             string        `yaml:"url"`
	Topics          []string      `yaml:"topics"`
	AccessToken     string        `yaml:"access_token"`
	JWTKey          string        `yaml:"jwt_key"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	WithCredentials bool          `yaml:"with_credentials"`
}

type APIConfig struct {
	BaseURL    string `yaml:"base_url"`
	ServerBase string `yaml:"server_base"`
}

type ImageConfig struct {
	BaseURL string `yaml:"base_url"`
	SiteURL string `yaml:"site_url"`
}

type DatabaseConfig struct {
	Path    string `yaml:"path"`
	Persist bool   `yaml:"persist"`
}

type SessionConfig struct {
	Dir string `yaml:"dir"`
}

// DevHubConfig configures the local development hub started by `lumeo hub`.
type DevHubConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Path   string `yaml:"path"`
	JWTKey string `yaml:"jwt_key"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8430,
			LogLevel: "info",
			MCP:      true,
			Metrics:  true,
		},
		Hub: HubConfig{
			TokenTTL: 12 * time.Hour,
		},
		Image: ImageConfig{
			BaseURL: "https://primefaces.org/cdn/templates/genesis",
		},
		Layout: layout.Defaults(),
		Database: DatabaseConfig{
			Path:    "~/.config/lumeo/lumeo.db",
			Persist: true,
		},
		Session: SessionConfig{
			Dir: "~/.config/lumeo",
		},
		DevHub: DevHubConfig{
			Host: "127.0.0.1",
			Port: 3000,
			Path: "/.well-known/mercure",
		},
	}
}
