package sync

import (
	"context"
	"time"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
)

// AccountsResult is the outcome of resolving one access token upstream.
type AccountsResult struct {
	Accounts []domain.Account
	ItemID   string
}

// UpstreamClient is the banking-data provider the connector reads from.
// Implementations must return an error for non-success provider responses.
type UpstreamClient interface {
	// FetchAccounts returns all accounts the access token grants access to,
	// with full account numbers when the provider allows it.
	FetchAccounts(ctx context.Context, accessToken string) (*AccountsResult, error)

	// FetchTransactions returns all transactions for the token's accounts in
	// [start, end], inclusive, pending ones included.
	FetchTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]domain.Transaction, error)
}

// LedgerClient is the downstream double-entry ledger the connector writes to.
type LedgerClient interface {
	// StoreTransaction stores the given splits as one transaction and returns
	// the id it was stored under.
	StoreTransaction(ctx context.Context, splits []domain.Split) (string, error)
}

// StateStore persists watermarks and the imported-transaction dedup ledger
// across process restarts.
type StateStore interface {
	Watermark(ctx context.Context, accountID string) (time.Time, bool, error)
	SetWatermark(ctx context.Context, accountID string, t time.Time) error
	Imported(ctx context.Context, txnID string) (fireflyID *string, ok bool, err error)
	RecordImported(ctx context.Context, txnID string, fireflyID *string) error
}
