package ergast

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the public Ergast-compatible mirror.
const DefaultBaseURL = "https://api.jolpi.ca/ergast/f1"

// Config describes where the upstream statistics API lives and which
// season/round the season-scoped endpoints point at.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Season  string        `yaml:"season"`
	Round   string        `yaml:"round"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Season:  "2025",
		Round:   "1",
		Timeout: 10 * time.Second,
	}
}

// LoadConfig reads an upstream configuration file. An empty path yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read upstream config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML over the defaults. ${VAR} references are expanded
// from the environment before parsing.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse upstream config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validate upstream config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL)
	}
	if c.Season == "" {
		return fmt.Errorf("season is required")
	}
	if c.Round == "" {
		return fmt.Errorf("round is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
