package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
	"github.com/dvloznov/plaid-firefly-sync/internal/logger"
)

// ErrAmbiguousMatch is returned when more than one configured sync target
// matches the same provider account. Silently picking one would route
// transactions to the wrong ledger account, so this is a configuration error.
var ErrAmbiguousMatch = errors.New("multiple sync targets match the same account")

// ResolveAccounts matches the raw accounts behind each access token to the
// configured sync targets, filling in the targets' resolved identifiers in
// place. Accounts no target claims are logged and ignored. A provider failure
// for any token is fatal: without account identity the pass cannot safely run.
func ResolveAccounts(ctx context.Context, upstream UpstreamClient, accessTokens []string, targets []*domain.SyncTarget) error {
	log := logger.FromContext(ctx)

	for _, token := range accessTokens {
		result, err := upstream.FetchAccounts(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to get account info for access token: %w", err)
		}

		for _, acct := range result.Accounts {
			var matched *domain.SyncTarget
			for _, target := range targets {
				if !target.Matches(acct) {
					continue
				}
				if matched != nil {
					return fmt.Errorf("%w: account %s (%s)", ErrAmbiguousMatch, acct.ID, acct.Name)
				}
				matched = target
			}

			if matched == nil {
				log.Warn().
					Str("account_name", acct.Name).
					Str("account_officialname", acct.OfficialName).
					Msg("Provider reported an unknown account")
				continue
			}

			name := acct.Name
			officialName := acct.OfficialName
			mask := acct.Mask
			matched.AccountName = &name
			matched.AccountOfficialName = &officialName
			matched.AccountLastFour = &mask
			matched.PlaidAccountID = &acct.ID
			matched.ResolvedAccountID = acct.ID
			matched.AccountNumber = acct.Number
			matched.PlaidAccessToken = token
			matched.PlaidItemID = result.ItemID

			log.Info().
				Str("account_id", acct.ID).
				Str("account_name", acct.Name).
				Str("firefly_account_id", matched.FireflyAccountID).
				Msg("Resolved sync target")
		}
	}

	return nil
}
