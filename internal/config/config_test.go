package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acrctl.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadArrayConfig(t *testing.T) {
	path := writeConfig(t, `
endpoint = "array1.lab.local"
username = "admin"
password = "secret"
insecure = true
timeout = "10s"
`)

	cfg, err := LoadArrayConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Endpoint != "array1.lab.local" || cfg.Username != "admin" || cfg.Password != "secret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Insecure {
		t.Fatal("expected insecure enabled")
	}

	d, err := cfg.TimeoutDuration()
	if err != nil || d != 10*time.Second {
		t.Fatalf("timeout = (%v, %v)", d, err)
	}
}

func TestLoadArrayConfigDefaultsTimeout(t *testing.T) {
	path := writeConfig(t, `
endpoint = "array1"
username = "admin"
password = "secret"
`)

	cfg, err := LoadArrayConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d, err := cfg.TimeoutDuration()
	if err != nil || d != 30*time.Second {
		t.Fatalf("default timeout = (%v, %v)", d, err)
	}
}

func TestValidateArrayConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  ArrayConfig
		ok   bool
	}{
		{"valid", ArrayConfig{Endpoint: "a", Username: "u", Password: "p"}, true},
		{"missing endpoint", ArrayConfig{Username: "u", Password: "p"}, false},
		{"missing username", ArrayConfig{Endpoint: "a", Password: "p"}, false},
		{"missing password", ArrayConfig{Endpoint: "a", Username: "u"}, false},
		{"bad timeout", ArrayConfig{Endpoint: "a", Username: "u", Password: "p", Timeout: "soon"}, false},
		{"negative timeout", ArrayConfig{Endpoint: "a", Username: "u", Password: "p", Timeout: "-5s"}, false},
	}
	for _, tc := range cases {
		err := ValidateArrayConfig(tc.cfg)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLoadArrayConfigMissingFile(t *testing.T) {
	if _, err := LoadArrayConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
