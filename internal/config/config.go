package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
)

// Sync run modes.
const (
	ModeBatch  = "batch"  // run one sync pass and exit
	ModePolled = "polled" // run passes forever with a fixed delay between them
)

// PlaidConfig holds the upstream provider credentials. One access token per
// linked institution; each token grants access to one or more accounts.
type PlaidConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	Secret       string   `mapstructure:"secret"`
	Environment  string   `mapstructure:"environment"`
	AccessTokens []string `mapstructure:"access_tokens"`
}

// FireflyConfig holds the downstream ledger endpoint and token.
type FireflyConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// Config is the full connector configuration, loaded from config.json.
type Config struct {
	MaxSyncDays          int                  `mapstructure:"max_sync_days"`
	SyncMode             string               `mapstructure:"sync_mode"`
	SyncFrequencyMinutes int                  `mapstructure:"sync_frequency_minutes"`
	Plaid                PlaidConfig          `mapstructure:"plaid"`
	Firefly              FireflyConfig        `mapstructure:"firefly"`
	Sync                 []*domain.SyncTarget `mapstructure:"sync"`
}

// Load reads config.json from the given directory and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(path)

	v.SetDefault("max_sync_days", 30)
	v.SetDefault("sync_mode", ModeBatch)
	v.SetDefault("sync_frequency_minutes", 60)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for the conditions the connector
// cannot start without.
func (c *Config) Validate() error {
	if c.MaxSyncDays <= 0 {
		return fmt.Errorf("max_sync_days must be positive, got %d", c.MaxSyncDays)
	}
	if c.SyncMode != ModeBatch && c.SyncMode != ModePolled {
		return fmt.Errorf("sync_mode must be %q or %q, got %q", ModeBatch, ModePolled, c.SyncMode)
	}
	if c.SyncMode == ModePolled && c.SyncFrequencyMinutes <= 0 {
		return fmt.Errorf("sync_frequency_minutes must be positive in polled mode, got %d", c.SyncFrequencyMinutes)
	}
	if c.Firefly.URL == "" {
		return fmt.Errorf("firefly.url is required")
	}
	if c.Firefly.Token == "" {
		return fmt.Errorf("firefly.token is required")
	}
	if len(c.Plaid.AccessTokens) == 0 {
		return fmt.Errorf("plaid.access_tokens must contain at least one token")
	}
	if len(c.Sync) == 0 {
		return fmt.Errorf("sync must contain at least one target account")
	}
	for i, target := range c.Sync {
		if target.FireflyAccountID == "" {
			return fmt.Errorf("sync[%d]: firefly_account_id is required", i)
		}
	}
	return nil
}
