// Package config provides configuration loading for linkrev.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LINKREV_SERVER_PORT, LINKREV_LOGGING_LEVEL, ...)
//  2. YAML config file (--config flag)
//  3. Defaults
package config

import (
	"fmt"
	"os"
	"strings"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/linkrev/linkrev/internal/compare"
	"github.com/linkrev/linkrev/internal/logging"
)

// envPrefix namespaces linkrev environment variables.
const envPrefix = "LINKREV_"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig   `koanf:"server"`
	Logging logging.Config `koanf:"logging"`
	Review  ReviewConfig   `koanf:"review"`
	// Packet optionally points at a review packet loaded on startup.
	Packet string `koanf:"packet"`
}

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// ReviewConfig holds review-session defaults.
type ReviewConfig struct {
	LabelChoices   []string `koanf:"label_choices"`
	ExistThreshold float64  `koanf:"exist_threshold"`
	Autosave       bool     `koanf:"autosave"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8389,
		},
		Logging: *logging.NewDefaultConfig(),
		Review: ReviewConfig{
			LabelChoices:   []string{"Match", "Not a Match"},
			ExistThreshold: compare.DefaultExistThreshold,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and LINKREV_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// LINKREV_SERVER_PORT -> server.port
	// LINKREV_REVIEW_EXIST_THRESHOLD -> review.exist_threshold
	if err := k.Load(env.Provider(envPrefix, ".", transformEnv), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// transformEnv maps LINKREV_SECTION_FIELD_NAME to section.field_name.
func transformEnv(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range [1, 65535]", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Review.ExistThreshold < 0 || c.Review.ExistThreshold > 1 {
		return fmt.Errorf("review.exist_threshold %g out of range [0, 1]", c.Review.ExistThreshold)
	}
	if len(c.Review.LabelChoices) == 0 {
		return fmt.Errorf("review.label_choices must not be empty")
	}
	return nil
}
