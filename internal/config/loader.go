package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// searchPaths returns the ordered list of config file locations to try.
func searchPaths() []string {
	paths := []string{
		"/etc/lumeo/lumeo.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lumeo", "lumeo.yaml"))
	}

	paths = append(paths, "lumeo.yaml")

	if envPath := os.Getenv("LUMEO_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	return paths
}

// Load reads configuration from YAML files and environment variables.
// Files are loaded in order (each overrides the previous):
// /etc/lumeo/lumeo.yaml < ~/.config/lumeo/lumeo.yaml < ./lumeo.yaml < $LUMEO_CONFIG
func Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range searchPaths() {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables have higher priority than YAML config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LUMEO_HUB_URL"); v != "" {
		cfg.Hub.URL = v
	}
	if v := os.Getenv("LUMEO_HUB_TOPICS"); v != "" {
		cfg.Hub.Topics = splitList(v)
	}
	if v := os.Getenv("LUMEO_HUB_ACCESS_TOKEN"); v != "" {
		cfg.Hub.AccessToken = v
	}
	if v := os.Getenv("LUMEO_API_BASE"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("LUMEO_API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config search paths
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	slog.Debug("loading config file", "path", path)

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.DevHub.Port < 1 || cfg.DevHub.Port > 65535 {
		return fmt.Errorf("dev_hub.port must be between 1 and 65535, got %d", cfg.DevHub.Port)
	}

	if cfg.Hub.URL != "" {
		u, err := url.Parse(cfg.Hub.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("hub.url must be an absolute http(s) URL, got %q", cfg.Hub.URL)
		}
		if len(cfg.Hub.Topics) == 0 {
			slog.Warn("hub.url is set but hub.topics is empty, live notifications are disabled")
		}
	}

	if !strings.HasPrefix(cfg.DevHub.Path, "/") {
		return fmt.Errorf("dev_hub.path must start with /, got %q", cfg.DevHub.Path)
	}

	if err := cfg.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	cfg.Database.Path = ExpandHome(cfg.Database.Path)
	cfg.Session.Dir = ExpandHome(cfg.Session.Dir)

	return nil
}
