package config

import (
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "secret_abc")
	t.Setenv("NOTION_VERSION", "")
	t.Setenv("NOTION_BASE_URL", "")
	t.Setenv("NOTION_TIMEOUT_SECONDS", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Token != "secret_abc" {
		t.Errorf("token = %q", cfg.Token)
	}
	if cfg.APIVersion != DefaultAPIVersion {
		t.Errorf("version = %q, want default", cfg.APIVersion)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
}

func TestFromEnvRequiresToken(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected an error without NOTION_TOKEN")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "secret_abc")
	t.Setenv("NOTION_VERSION", "2025-09-03")
	t.Setenv("NOTION_TIMEOUT_SECONDS", "5")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIVersion != "2025-09-03" {
		t.Errorf("version = %q", cfg.APIVersion)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}

	t.Setenv("NOTION_TIMEOUT_SECONDS", "soon")
	if _, err := FromEnv(); err == nil {
		t.Error("expected an error for a non-numeric timeout")
	}
}
