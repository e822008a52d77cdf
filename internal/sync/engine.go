package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
	"github.com/dvloznov/plaid-firefly-sync/internal/logger"
)

// ErrStaleWatermark is returned when an account's cursor is older than the
// sync window. Fetching from a stale cursor would silently miss everything
// the provider no longer replays, so the pass refuses to run without
// --force-sync.
var ErrStaleWatermark = errors.New("last sync is older than the max_sync_days window")

// Engine drives synchronization passes: fetch, filter, match, post, record,
// advance watermarks. One logical worker; passes never overlap.
type Engine struct {
	upstream    UpstreamClient
	ledger      LedgerClient
	store       StateStore
	targets     []*domain.SyncTarget
	maxSyncDays int
	forceSync   bool

	now func() time.Time
}

// New constructs an Engine over resolved sync targets.
func New(upstream UpstreamClient, ledger LedgerClient, store StateStore, targets []*domain.SyncTarget, maxSyncDays int, forceSync bool) *Engine {
	return &Engine{
		upstream:    upstream,
		ledger:      ledger,
		store:       store,
		targets:     targets,
		maxSyncDays: maxSyncDays,
		forceSync:   forceSync,
		now:         time.Now,
	}
}

// pendingWatermark tracks the cursor an account should advance to once the
// pass completes.
type pendingWatermark struct {
	accountID string
	cursor    time.Time
}

// SyncOnce runs one full synchronization pass. Posting and dedup-recording
// happen transaction by transaction; watermark advancement is committed per
// account at the end of the pass, after all postings are recorded.
func (e *Engine) SyncOnce(ctx context.Context) error {
	log := logger.FromContext(ctx).With().Str("pass_id", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx, log)

	now := e.now()
	windowStart := now.AddDate(0, 0, -e.maxSyncDays)

	if e.forceSync {
		log.Info().Int("max_sync_days", e.maxSyncDays).Msg("Force sync enabled, requesting the full sync window")
	}

	// FETCH: collect finalized transactions from every resolved target into
	// one pool; remember where each account's cursor must move next.
	var pool []domain.Transaction
	var watermarks []pendingWatermark
	for _, target := range e.targets {
		// Targets the resolver could not bind to an access token are not synced.
		if target.PlaidAccessToken == "" {
			continue
		}
		accountID := target.ResolvedAccountID

		cursor, found, err := e.store.Watermark(ctx, accountID)
		if err != nil {
			return err
		}
		switch {
		case e.forceSync:
			cursor = windowStart
		case !found:
			cursor = windowStart
		case cursor.Before(windowStart):
			return fmt.Errorf("%w: account %s last synced %s; increase max_sync_days or rerun with --force-sync",
				ErrStaleWatermark, accountID, cursor.Format(time.RFC3339))
		}

		txns, err := e.upstream.FetchTransactions(ctx, target.PlaidAccessToken, cursor, now)
		if err != nil {
			return fmt.Errorf("failed to fetch transactions for account %s: %w", accountID, err)
		}

		// FILTER: pending transactions never post. They only pin the next
		// cursor so the pass after their finalization re-observes them.
		var earliestPending time.Time
		hasPending := false
		finalized := 0
		for _, txn := range txns {
			if txn.Pending {
				if !hasPending || txn.Date.Before(earliestPending) {
					earliestPending = txn.Date
				}
				hasPending = true
				continue
			}
			pool = append(pool, txn)
			finalized++
		}
		next := now
		if hasPending {
			next = earliestPending
		}
		watermarks = append(watermarks, pendingWatermark{accountID: accountID, cursor: next})

		log.Info().
			Str("account_id", accountID).
			Int("fetched", len(txns)).
			Int("finalized", finalized).
			Time("cursor", cursor).
			Msg("Fetched transactions")
	}

	// MATCH: pair the legs of inter-account movements.
	pairs, singles := MatchTransfers(pool)

	// POST + RECORD, transaction by transaction.
	for _, pair := range pairs {
		if err := e.postTransfer(ctx, pair); err != nil {
			return err
		}
	}
	for _, txn := range singles {
		if err := e.postSingle(ctx, txn); err != nil {
			return err
		}
	}

	// ADVANCE_WATERMARK, per account, now that every posting is recorded.
	for _, wm := range watermarks {
		if err := e.store.SetWatermark(ctx, wm.accountID, wm.cursor); err != nil {
			return err
		}
	}

	log.Info().
		Int("pool", len(pool)).
		Int("pairs", len(pairs)).
		Int("singles", len(singles)).
		Msg("Sync pass completed")
	return nil
}

// SyncPolled runs passes indefinitely with a fixed delay between them. The
// delay is interruptible: cancelling the context shuts the loop down cleanly
// between passes.
func (e *Engine) SyncPolled(ctx context.Context, interval time.Duration) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		if err := e.SyncOnce(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			timer.Reset(interval)
		}
	}
}

// targetForAccount finds the resolved sync target for a provider account id.
// Returns nil when the account is not configured for sync.
func (e *Engine) targetForAccount(accountID string) *domain.SyncTarget {
	for _, target := range e.targets {
		if target.ResolvedAccountID == accountID {
			return target
		}
	}
	return nil
}

// postTransfer stores one matched pair as a single transfer between the two
// tracked ledger accounts and records both legs against the stored id.
func (e *Engine) postTransfer(ctx context.Context, pair TransferPair) error {
	log := logger.FromContext(ctx)
	src := pair.Source()
	dst := pair.Destination()

	srcID, srcSeen, err := e.store.Imported(ctx, src.ID)
	if err != nil {
		return err
	}
	dstID, dstSeen, err := e.store.Imported(ctx, dst.ID)
	if err != nil {
		return err
	}
	if srcSeen || dstSeen {
		// A pair with exactly one recorded leg means the previous run stopped
		// between the two record writes; backfill the missing tombstone
		// instead of posting a duplicate transfer.
		if srcSeen && !dstSeen && srcID != nil {
			return e.store.RecordImported(ctx, dst.ID, srcID)
		}
		if dstSeen && !srcSeen && dstID != nil {
			return e.store.RecordImported(ctx, src.ID, dstID)
		}
		return nil
	}

	srcTarget := e.targetForAccount(src.AccountID)
	dstTarget := e.targetForAccount(dst.AccountID)
	if srcTarget == nil || dstTarget == nil {
		return fmt.Errorf("account not found in config: %s or %s", src.AccountID, dst.AccountID)
	}

	log.Info().
		Str("source_txn", src.ID).
		Str("destination_txn", dst.ID).
		Str("amount", src.Amount.String()).
		Msg("Found matching transfer pair")

	split := domain.Split{
		Type:          domain.SplitTransfer,
		Date:          src.Date,
		ProcessDate:   dst.Date,
		Description:   src.Name + " -> " + dst.Name,
		Amount:        src.Amount,
		CurrencyCode:  src.CurrencyCode,
		ExternalID:    src.ID + " -> " + dst.ID,
		SourceID:      srcTarget.FireflyAccountID,
		DestinationID: dstTarget.FireflyAccountID,
	}

	storedID, err := e.ledger.StoreTransaction(ctx, []domain.Split{split})
	if err != nil {
		return fmt.Errorf("failed to store transfer %s: %w", split.ExternalID, err)
	}

	if err := e.store.RecordImported(ctx, src.ID, &storedID); err != nil {
		return err
	}
	return e.store.RecordImported(ctx, dst.ID, &storedID)
}

// postSingle stores one unmatched transaction as a withdrawal or deposit on
// its tracked ledger account. Transactions on unconfigured accounts are
// tombstoned with no ledger id and never looked at again.
func (e *Engine) postSingle(ctx context.Context, txn domain.Transaction) error {
	log := logger.FromContext(ctx)

	if _, seen, err := e.store.Imported(ctx, txn.ID); err != nil {
		return err
	} else if seen {
		return nil
	}

	target := e.targetForAccount(txn.AccountID)
	if target == nil {
		log.Info().
			Str("txn_id", txn.ID).
			Str("account_id", txn.AccountID).
			Msg("Dropping transaction, account not configured for sync")
		return e.store.RecordImported(ctx, txn.ID, nil)
	}

	log.Info().
		Str("txn_id", txn.ID).
		Str("account_id", txn.AccountID).
		Str("amount", txn.Amount.String()).
		Msg("Creating single sided transaction")

	split := domain.Split{
		Date:         txn.Date,
		Description:  txn.Name,
		Amount:       txn.Amount.Abs(),
		CurrencyCode: txn.CurrencyCode,
		ExternalID:   txn.ID,
		Tags:         txn.Categories,
	}
	if txn.Amount.IsPositive() {
		split.Type = domain.SplitWithdrawal
		split.SourceID = target.FireflyAccountID
		split.DestinationName = txn.Name
	} else {
		split.Type = domain.SplitDeposit
		split.SourceName = txn.Name
		split.DestinationID = target.FireflyAccountID
	}

	storedID, err := e.ledger.StoreTransaction(ctx, []domain.Split{split})
	if err != nil {
		return fmt.Errorf("failed to store transaction %s: %w", txn.ID, err)
	}
	return e.store.RecordImported(ctx, txn.ID, &storedID)
}
