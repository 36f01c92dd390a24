package config

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

// ── Configuration ──────────────────────────────────────────
// All environment access happens here; the rest of the process takes
// a Config. The credential is validated at startup and never logged.

// DefaultAPIVersion pins the remote API revision sent on every
// request. Overridable for forward compatibility, never defaulted by
// the transport itself.
const DefaultAPIVersion = "2022-06-28"

// Config is the full process configuration.
type Config struct {
	Token      string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Token, validation.Required.Error("NOTION_TOKEN is not set")),
		validation.Field(&c.APIVersion, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Second).Error("timeout must be at least one second")),
	)
}

// Credential returns the transport credential for this configuration.
func (c Config) Credential() notion.Credential {
	return notion.Credential{Token: c.Token, Version: c.APIVersion}
}

// FromEnv loads configuration from the environment.
//
//	NOTION_TOKEN            integration credential (required)
//	NOTION_VERSION          API revision (default 2022-06-28)
//	NOTION_BASE_URL         endpoint override, for tests and proxies
//	NOTION_TIMEOUT_SECONDS  per-request timeout (default 30)
func FromEnv() (Config, error) {
	cfg := Config{
		Token:      os.Getenv("NOTION_TOKEN"),
		APIVersion: envOr("NOTION_VERSION", DefaultAPIVersion),
		BaseURL:    os.Getenv("NOTION_BASE_URL"),
		Timeout:    30 * time.Second,
	}
	if raw := os.Getenv("NOTION_TIMEOUT_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, notion.NewError(notion.KindValidation,
				"NOTION_TIMEOUT_SECONDS %q is not a number", raw)
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
