package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ArrayConfig holds the connection settings for one managed array.
type ArrayConfig struct {
	Endpoint string `toml:"endpoint"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Insecure bool   `toml:"insecure"`
	Timeout  string `toml:"timeout"`
}

const defaultTimeout = 30 * time.Second

func LoadArrayConfig(path string) (ArrayConfig, error) {
	var cfg ArrayConfig
	if err := loadToml(path, &cfg); err != nil {
		return ArrayConfig{}, err
	}
	if cfg.Timeout == "" {
		cfg.Timeout = defaultTimeout.String()
	}
	if err := ValidateArrayConfig(cfg); err != nil {
		return ArrayConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateArrayConfig(cfg ArrayConfig) error {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return fmt.Errorf("array config missing endpoint")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return fmt.Errorf("array config missing username")
	}
	if cfg.Password == "" {
		return fmt.Errorf("array config missing password")
	}
	if _, err := cfg.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses the configured timeout, defaulting when unset.
func (c ArrayConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Timeout) == "" {
		return defaultTimeout, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.Timeout))
	if err != nil {
		return 0, fmt.Errorf("array config invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("array config timeout must be positive, got %q", c.Timeout)
	}
	return d, nil
}
