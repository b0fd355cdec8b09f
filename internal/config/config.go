// Package config loads the appcoord.yml configuration file and applies
// environment overrides. Every field has a usable default, so a missing file
// is not an error — the zero config talks to Redis on localhost.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/IamJasonBian/allocation-crawler-service/internal/classify"
)

// DefaultPath is where commands look for the config file unless --config
// points elsewhere.
const DefaultPath = "appcoord.yml"

// Config represents the top-level appcoord.yml configuration.
type Config struct {
	RedisAddr      string              `yaml:"redis_addr"`
	Namespace      string              `yaml:"namespace"`
	LockTTLSeconds int                 `yaml:"lock_ttl_seconds,omitempty"`
	Tags           map[string][]string `yaml:"tags,omitempty"` // tag -> keywords; empty uses built-in rules
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist, then applies environment overrides
// (APPCOORD_REDIS_ADDR, APPCOORD_NAMESPACE) and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{
		RedisAddr: "localhost:6379",
		Namespace: "default",
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if addr := os.Getenv("APPCOORD_REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	if ns := os.Getenv("APPCOORD_NAMESPACE"); ns != "" {
		cfg.Namespace = ns
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("redis_addr cannot be empty")
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if c.LockTTLSeconds < 0 {
		return fmt.Errorf("lock_ttl_seconds cannot be negative: %d", c.LockTTLSeconds)
	}
	for tag, keywords := range c.Tags {
		if tag == "" {
			return fmt.Errorf("tag name cannot be empty")
		}
		if len(keywords) == 0 {
			return fmt.Errorf("tag %q has no keywords", tag)
		}
	}
	return nil
}

// LockTTL returns the configured apply-lock expiry, or zero when unset so
// the tracker client applies its own default.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Rules returns the classifier rule set: the configured tags when present,
// otherwise the built-in defaults.
func (c *Config) Rules() classify.Rules {
	if len(c.Tags) == 0 {
		return classify.Default()
	}
	return classify.Rules(c.Tags)
}
