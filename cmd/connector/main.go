package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dvloznov/plaid-firefly-sync/internal/config"
	"github.com/dvloznov/plaid-firefly-sync/internal/firefly"
	"github.com/dvloznov/plaid-firefly-sync/internal/logger"
	"github.com/dvloznov/plaid-firefly-sync/internal/plaid"
	"github.com/dvloznov/plaid-firefly-sync/internal/store"
	"github.com/dvloznov/plaid-firefly-sync/internal/sync"
)

func main() {
	log := logger.New()

	forceSync := flag.Bool("force-sync", false, "Force synchronization of max_sync_days of data")
	flag.Parse()

	// Config and state live side by side, in CONFIG_PATH or the cwd.
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "."
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load config; do you need to set CONFIG_PATH?")
	}

	st, err := store.Open(filepath.Join(path, "import-db.sqlite3"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state database")
	}
	defer st.Close()

	upstream, err := plaid.New(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Environment)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create plaid client")
	}
	ledger := firefly.New(cfg.Firefly.URL, cfg.Firefly.Token)

	// Cancel cleanly on interrupt; in polled mode this ends the loop between
	// passes.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if err := sync.ResolveAccounts(ctx, upstream, cfg.Plaid.AccessTokens, cfg.Sync); err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve accounts")
	}

	engine := sync.New(upstream, ledger, st, cfg.Sync, cfg.MaxSyncDays, *forceSync)

	switch cfg.SyncMode {
	case config.ModeBatch:
		err = engine.SyncOnce(ctx)
	case config.ModePolled:
		log.Info().Int("frequency_minutes", cfg.SyncFrequencyMinutes).Msg("Starting polled sync")
		err = engine.SyncPolled(ctx, time.Duration(cfg.SyncFrequencyMinutes)*time.Minute)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	log.Info().Msg("Sync completed")
}
