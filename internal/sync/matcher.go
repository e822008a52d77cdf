package sync

import (
	"time"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
)

// transferWindow is the maximum separation between the two legs of a
// transfer. Settlement of the receiving leg can lag the sending leg by a few
// business days.
const transferWindow = 7 * 24 * time.Hour

// Provider category ids that can form the two legs of a single transfer.
const (
	categoryTransferCredit    = "21005000"
	categoryTransferDebit     = "21006000"
	categoryCreditCardPayment = "16001000"
	// Some card issuers report their payment leg under transfer - payroll.
	categoryTransferPayroll = "21009000"
)

// complementaryCategories maps each transfer-capable category id to the
// category id its counterpart leg must carry. This table is a constant of the
// provider's taxonomy, not user-configurable.
var complementaryCategories = map[string]string{
	categoryTransferCredit:    categoryTransferDebit,
	categoryTransferDebit:     categoryTransferCredit,
	categoryCreditCardPayment: categoryTransferPayroll,
	categoryTransferPayroll:   categoryCreditCardPayment,
}

// TransferPair is two transactions identified as the legs of one movement of
// funds between two tracked accounts.
type TransferPair struct {
	A, B domain.Transaction
}

// Source returns the leg money left from (the positive-amount transaction,
// per the provider's sign convention).
func (p TransferPair) Source() domain.Transaction {
	if p.A.Amount.IsPositive() {
		return p.A
	}
	return p.B
}

// Destination returns the leg money arrived at.
func (p TransferPair) Destination() domain.Transaction {
	if p.A.Amount.IsPositive() {
		return p.B
	}
	return p.A
}

// pairsWith reports whether b is a valid counterpart leg for a: exact amount
// negation in the same currency, dates within the transfer window, and
// complementary category ids.
func pairsWith(a, b domain.Transaction) bool {
	if !b.Amount.Equal(a.Amount.Neg()) {
		return false
	}
	if b.CurrencyCode != a.CurrencyCode {
		return false
	}
	gap := b.Date.Sub(a.Date)
	if gap < 0 {
		gap = -gap
	}
	if gap >= transferWindow {
		return false
	}
	return complementaryCategories[a.CategoryID] == b.CategoryID
}

// MatchTransfers partitions the pass pool into transfer pairs and the
// remaining single-sided transactions.
//
// The scan is deliberately greedy and order-dependent: for each transaction
// in pool order, the first unconsumed counterpart wins, and both legs leave
// the pool. With more than two eligible candidates this picks a different
// pairing than a minimum-distance assignment would; downstream state depends
// on the pairing staying stable, so the scan order must not change.
func MatchTransfers(pool []domain.Transaction) ([]TransferPair, []domain.Transaction) {
	var pairs []TransferPair
	var singles []domain.Transaction
	consumed := make([]bool, len(pool))

	for i, txn := range pool {
		if consumed[i] {
			continue
		}
		if _, ok := complementaryCategories[txn.CategoryID]; !ok {
			singles = append(singles, txn)
			continue
		}

		matched := false
		for j, other := range pool {
			if j == i || consumed[j] {
				continue
			}
			if pairsWith(txn, other) {
				pairs = append(pairs, TransferPair{A: txn, B: other})
				consumed[i] = true
				consumed[j] = true
				matched = true
				break
			}
		}
		if !matched {
			singles = append(singles, txn)
		}
	}

	return pairs, singles
}
