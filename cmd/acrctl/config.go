package main

import (
	"github.com/arrayops/acrctl/internal/config"
)

// resolveArrayConfig loads the config file when given and lets flags win.
func resolveArrayConfig(path string, flags config.ArrayConfig) (config.ArrayConfig, error) {
	cfg := flags
	if path != "" {
		loaded, err := config.LoadArrayConfig(path)
		if err != nil {
			return config.ArrayConfig{}, err
		}
		cfg = overlayArrayConfig(loaded, flags)
	}
	if err := config.ValidateArrayConfig(cfg); err != nil {
		return config.ArrayConfig{}, err
	}
	return cfg, nil
}

func overlayArrayConfig(base, flags config.ArrayConfig) config.ArrayConfig {
	if flags.Endpoint != "" {
		base.Endpoint = flags.Endpoint
	}
	if flags.Username != "" {
		base.Username = flags.Username
	}
	if flags.Password != "" {
		base.Password = flags.Password
	}
	if flags.Insecure {
		base.Insecure = true
	}
	if flags.Timeout != "" {
		base.Timeout = flags.Timeout
	}
	return base
}
