package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/arrayops/acrctl/internal/arraysim"
)

type fileConfig struct {
	ListenAddr        string   `toml:"listen_addr"`
	Username          string   `toml:"username"`
	Password          string   `toml:"password"`
	CorsOrigins       []string `toml:"cors_origins"`
	Volumes           []string `toml:"volumes"`
	InitiatorGroups   []string `toml:"initiator_groups"`
	ChapUsers         []string `toml:"chap_users"`
	ProtocolEndpoints []string `toml:"protocol_endpoints"`
	Snapshots         []string `toml:"snapshots"`
}

func loadSimConfig(path string) (arraysim.Config, error) {
	cfg := arraysim.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return arraysim.Config{}, fmt.Errorf("load arraysim config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		addr := strings.TrimSpace(raw.ListenAddr)
		if addr != "" {
			cfg.ListenAddr = addr
		}
	}
	if meta.IsDefined("username") {
		cfg.Username = strings.TrimSpace(raw.Username)
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeNames(raw.CorsOrigins)
	}
	if meta.IsDefined("volumes") {
		cfg.Volumes = normalizeNames(raw.Volumes)
	}
	if meta.IsDefined("initiator_groups") {
		cfg.InitiatorGroups = normalizeNames(raw.InitiatorGroups)
	}
	if meta.IsDefined("chap_users") {
		cfg.ChapUsers = normalizeNames(raw.ChapUsers)
	}
	if meta.IsDefined("protocol_endpoints") {
		cfg.ProtocolEndpoints = normalizeNames(raw.ProtocolEndpoints)
	}
	if meta.IsDefined("snapshots") {
		cfg.Snapshots = normalizeNames(raw.Snapshots)
	}

	return cfg, nil
}

func normalizeNames(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, name := range in {
		v := strings.TrimSpace(name)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
