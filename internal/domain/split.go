package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitType is the Firefly III transaction type of a split.
type SplitType string

const (
	SplitWithdrawal SplitType = "withdrawal"
	SplitDeposit    SplitType = "deposit"
	SplitTransfer   SplitType = "transfer"
)

// Split describes one side-complete transaction to store in Firefly III.
// Exactly one of SourceID/SourceName is set, and likewise for the
// destination: ids reference tracked asset accounts, names create or reuse
// expense/revenue accounts on the Firefly side.
type Split struct {
	Type            SplitType
	Date            time.Time
	ProcessDate     time.Time // settlement date for transfers; zero otherwise
	Description     string
	Amount          decimal.Decimal // always positive
	CurrencyCode    string
	ExternalID      string
	SourceID        string
	SourceName      string
	DestinationID   string
	DestinationName string
	Tags            []string
}
