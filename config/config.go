package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "blogfront.toml"

// APIConfig points the front at the posts API
type APIConfig struct {
	BaseURL string        `toml:"base_url"`
	Key     string        `toml:"key"`
	Timeout time.Duration `toml:"timeout"`
}

// ServerConfig holds the front server settings
type ServerConfig struct {
	Listen      string        `toml:"listen"`
	RenderWait  time.Duration `toml:"render_wait"`
	CorsOrigins []string      `toml:"cors_origins,omitempty"`
}

// DatabaseConfig is used by the development API
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// BlueskyConfig is used when sharing posts
type BlueskyConfig struct {
	Host string `toml:"host"`
	// Public address of the front, used to link shared posts
	PostBaseURL string `toml:"post_base_url"`
}

// Config represents the top-level configuration
type Config struct {
	API      APIConfig      `toml:"api"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Bluesky  BlueskyConfig  `toml:"bluesky"`
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:3001/api",
			Key:     "blogfront",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Listen:     ":3000",
			RenderWait: 2 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "posts.db",
		},
		Bluesky: BlueskyConfig{
			Host:        "https://bsky.social",
			PostBaseURL: "http://localhost:3000",
		},
	}
}

// LoadConfig reads the file at path over the defaults. Keys missing from
// the file keep their default value.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return Parse(string(data))
}

// LoadOptional is LoadConfig, but a missing file yields the defaults
func LoadOptional(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

func Parse(data string) (*Config, error) {
	config := Default()
	meta, err := toml.Decode(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		log.WithFields(log.Fields{
			"keys": strings.Join(keys, ","),
		}).Warn("Ignoring unknown config keys")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must be set")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Server.RenderWait <= 0 {
		return fmt.Errorf("server.render_wait must be positive, got %s", c.Server.RenderWait)
	}
	return nil
}
