// Package config loads the tessera.yaml deployment file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the file loaded when no --config flag is given.
const DefaultPath = "tessera.yaml"

// Config is the deployment configuration.
type Config struct {
	Version  int    `yaml:"version"`
	Name     string `yaml:"name"`
	Debug    bool   `yaml:"debug"`
	Commands string `yaml:"commands"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Server struct {
		Addr     string `yaml:"addr"`
		FeedSize int    `yaml:"feed_size"`
	} `yaml:"server"`

	Scripts struct {
		Dir string `yaml:"dir"`
		// Watch is the polling interval for reloading Dir; zero disables it.
		Watch time.Duration `yaml:"watch"`
	} `yaml:"scripts"`

	Store struct {
		// Backend is "none", "memory" or "bolt".
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		Encrypt bool   `yaml:"encrypt"`
	} `yaml:"store"`

	Globals struct {
		// Backend is "memory" or "redis".
		Backend string `yaml:"backend"`
		Redis   struct {
			Addr    string        `yaml:"addr"`
			DB      int           `yaml:"db"`
			Prefix  string        `yaml:"prefix"`
			Refresh time.Duration `yaml:"refresh"`
		} `yaml:"redis"`
		Values map[string]any `yaml:"values"`
	} `yaml:"globals"`

	Scheduler struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"scheduler"`

	MQTT struct {
		Broker     string `yaml:"broker"`
		ClientID   string `yaml:"client_id"`
		Username   string `yaml:"username"`
		Topic      string `yaml:"topic"`
		Prefix     string `yaml:"prefix"`
		ReplyTopic string `yaml:"reply_topic"`
	} `yaml:"mqtt"`

	Audit struct {
		Postgres bool     `yaml:"postgres"`
		Instance string   `yaml:"instance"`
		Redact   []string `yaml:"redact"`
	} `yaml:"audit"`

	// Secrets are never read from the file.
	Secrets Secrets `yaml:"-"`
}

// Secrets holds the credentials resolved from the environment.
type Secrets struct {
	RedisPassword string
	PostgresDSN   string
	MQTTPassword  string
	// StoreKey is the hex-encoded AES-256 key of the script store.
	StoreKey string
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.FeedSize == 0 {
		c.Server.FeedSize = 100
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "none"
	}
	if c.Store.Path == "" {
		c.Store.Path = "tessera.db"
	}
	if c.Globals.Backend == "" {
		c.Globals.Backend = "memory"
	}
	if c.Globals.Redis.Addr == "" {
		c.Globals.Redis.Addr = "localhost:6379"
	}
	if c.Globals.Redis.Refresh == 0 {
		c.Globals.Redis.Refresh = 5 * time.Second
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = time.Second
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "tessera/events/#"
	}
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "tessera/events/"
	}
	if c.Audit.Instance == "" {
		c.Audit.Instance = c.Name
	}
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Version != 1 {
		errs = append(errs, fmt.Errorf("unsupported tessera.yaml version: %d", c.Version))
	}
	switch c.Store.Backend {
	case "none", "memory", "bolt":
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	switch c.Globals.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("globals.backend: unknown backend %q", c.Globals.Backend))
	}
	if c.Store.Encrypt && c.Secrets.StoreKey == "" {
		errs = append(errs, errors.New("store.encrypt requires TESSERA_STORE_KEY"))
	}
	if c.Audit.Postgres && c.Secrets.PostgresDSN == "" {
		errs = append(errs, errors.New("audit.postgres requires TESSERA_POSTGRES_DSN"))
	}
	return errors.Join(errs...)
}

// Parse decodes a configuration document and applies defaults.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Load reads path, resolves secrets and validates the result.
// A missing file at DefaultPath yields the defaults.
func Load(path string) (*Config, error) {
	var cfg *Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = Parse(b); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
		cfg = Default()
	default:
		return nil, err
	}

	if cfg.Secrets, err = LoadSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
