// Package config loads gateway configuration from defaults, an
// optional YAML file, and environment variables, in that order of
// precedence (env wins).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces the gateway's environment variables, e.g.
// GATEWAY_LASTFM_API_KEY overrides lastfm.api_key.
const envPrefix = "GATEWAY_"

// defaultConfigPaths are searched in order; the first existing file wins.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/scrobble-gateway/config.yaml",
}

// Config is the gateway's full configuration tree.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	LastFM  LastFMConfig  `koanf:"lastfm"`
	Store   StoreConfig   `koanf:"store"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP listener and request policies.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LastFMConfig holds provider credentials and the OAuth callback URL
// registered with the provider.
type LastFMConfig struct {
	APIKey      string `koanf:"api_key"`
	Secret      string `koanf:"secret"`
	CallbackURL string `koanf:"callback_url"`
}

// Configured reports whether provider credentials are present. The
// gateway starts without them; login requests fail with a configuration
// error until they are set.
func (l LastFMConfig) Configured() bool {
	return l.APIKey != "" && l.Secret != ""
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	Backend     string `koanf:"backend"` // memory, badger or postgres
	Path        string `koanf:"path"`    // badger data directory
	DatabaseURL string `koanf:"database_url"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8787,
			CORSOrigins:     []string{},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
		},
		LastFM: LastFMConfig{
			CallbackURL: "",
		},
		Store: StoreConfig{
			Backend: "badger",
			Path:    "/data/sessions",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional config file
// and environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeyTransform maps GATEWAY_LASTFM_API_KEY to lastfm.api_key. The
// first underscore separates the section; the rest of the name keeps
// its underscores.
func envKeyTransform(key string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(key, envPrefix))
	parts := strings.SplitN(trimmed, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "badger", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Store.Backend == "postgres" && c.Store.DatabaseURL == "" {
		return fmt.Errorf("store.database_url is required for the postgres backend")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
