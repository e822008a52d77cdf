package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, `{
		"max_sync_days": 14,
		"sync_mode": "polled",
		"sync_frequency_minutes": 30,
		"plaid": {
			"client_id": "cid",
			"secret": "sec",
			"environment": "development",
			"access_tokens": ["access-token-1"]
		},
		"firefly": {"url": "https://firefly.example.com", "token": "ff-token"},
		"sync": [
			{"plaid_account_id": "acc-1", "firefly_account_id": "1"},
			{"account_name": "Checking", "account_lastfour": "1234", "firefly_account_id": "2"}
		]
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxSyncDays != 14 {
		t.Errorf("MaxSyncDays = %d, want 14", cfg.MaxSyncDays)
	}
	if cfg.SyncMode != ModePolled {
		t.Errorf("SyncMode = %q, want %q", cfg.SyncMode, ModePolled)
	}
	if len(cfg.Sync) != 2 {
		t.Fatalf("len(Sync) = %d, want 2", len(cfg.Sync))
	}
	if cfg.Sync[0].PlaidAccountID == nil || *cfg.Sync[0].PlaidAccountID != "acc-1" {
		t.Errorf("Sync[0].PlaidAccountID = %v, want acc-1", cfg.Sync[0].PlaidAccountID)
	}
	if cfg.Sync[0].AccountName != nil {
		t.Errorf("Sync[0].AccountName = %v, want nil", cfg.Sync[0].AccountName)
	}
	if cfg.Sync[1].AccountLastFour == nil || *cfg.Sync[1].AccountLastFour != "1234" {
		t.Errorf("Sync[1].AccountLastFour = %v, want 1234", cfg.Sync[1].AccountLastFour)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := writeConfig(t, `{
		"plaid": {"access_tokens": ["tok"]},
		"firefly": {"url": "https://ff", "token": "t"},
		"sync": [{"firefly_account_id": "1"}]
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxSyncDays != 30 {
		t.Errorf("MaxSyncDays default = %d, want 30", cfg.MaxSyncDays)
	}
	if cfg.SyncMode != ModeBatch {
		t.Errorf("SyncMode default = %q, want %q", cfg.SyncMode, ModeBatch)
	}
	if cfg.SyncFrequencyMinutes != 60 {
		t.Errorf("SyncFrequencyMinutes default = %d, want 60", cfg.SyncFrequencyMinutes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	ffAccount := func() []*domain.SyncTarget {
		return []*domain.SyncTarget{{FireflyAccountID: "1"}}
	}
	valid := func() *Config {
		return &Config{
			MaxSyncDays:          30,
			SyncMode:             ModeBatch,
			SyncFrequencyMinutes: 60,
			Plaid:                PlaidConfig{AccessTokens: []string{"tok"}},
			Firefly:              FireflyConfig{URL: "https://ff", Token: "t"},
			Sync:                 ffAccount(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero max_sync_days", func(c *Config) { c.MaxSyncDays = 0 }, "max_sync_days"},
		{"bad mode", func(c *Config) { c.SyncMode = "cron" }, "sync_mode"},
		{"polled without frequency", func(c *Config) {
			c.SyncMode = ModePolled
			c.SyncFrequencyMinutes = 0
		}, "sync_frequency_minutes"},
		{"missing firefly url", func(c *Config) { c.Firefly.URL = "" }, "firefly.url"},
		{"missing firefly token", func(c *Config) { c.Firefly.Token = "" }, "firefly.token"},
		{"no access tokens", func(c *Config) { c.Plaid.AccessTokens = nil }, "access_tokens"},
		{"no sync targets", func(c *Config) { c.Sync = nil }, "sync must contain"},
		{"target without firefly account", func(c *Config) {
			c.Sync = []*domain.SyncTarget{{}}
		}, "firefly_account_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate returned unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
