package main

import (
	"os"
	"path/filepath"
	"testing"

	apiclient "github.com/LuisErlacher/Archon/pkg/api/client"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	t.Setenv("ARCHON_CONFIG", path)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.APIBaseURL != apiclient.DefaultBaseURL || cfg.AccessToken != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	cfg.AccessToken = "tok"
	if err := saveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
	loaded, err := loadConfig()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, loaded)
	}
}

func TestAuthedClientRequiresLogin(t *testing.T) {
	t.Setenv("ARCHON_CONFIG", filepath.Join(t.TempDir(), "config.json"))
	if _, _, err := authedClient(true); err == nil {
		t.Fatalf("expected login error")
	}
	if _, client, err := authedClient(false); err != nil || client == nil {
		t.Fatalf("expected anonymous client, got %v", err)
	}
}
