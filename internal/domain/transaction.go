package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one transaction as reported by the upstream
// provider. Amounts are signed per the provider convention: positive amounts
// post as withdrawals from the account, negative ones as deposits. Instances
// are immutable once fetched and live only for the duration of a single sync
// pass.
type Transaction struct {
	ID           string          // provider-assigned, stable across re-fetches
	AccountID    string          // provider account the transaction belongs to
	Amount       decimal.Decimal // signed, per provider convention
	CurrencyCode string
	Date         time.Time
	Pending      bool
	CategoryID   string   // provider classification code, e.g. "21005000"
	Categories   []string // human-readable classification labels
	Name         string   // merchant / payee name
}
