package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
)

func strptr(s string) *string { return &s }

func TestResolveAccountsByAccountID(t *testing.T) {
	upstream := &mockUpstream{
		accounts: map[string]*AccountsResult{
			"tok-1": {
				ItemID: "item-1",
				Accounts: []domain.Account{
					{ID: "acc-1", Name: "Checking", OfficialName: "Premier Checking", Mask: "1234", Number: "000123451234"},
				},
			},
		},
	}
	target := &domain.SyncTarget{
		PlaidAccountID:   strptr("acc-1"),
		FireflyAccountID: "7",
	}

	err := ResolveAccounts(context.Background(), upstream, []string{"tok-1"}, []*domain.SyncTarget{target})
	if err != nil {
		t.Fatalf("ResolveAccounts failed: %v", err)
	}

	if target.ResolvedAccountID != "acc-1" {
		t.Errorf("ResolvedAccountID = %q, want acc-1", target.ResolvedAccountID)
	}
	if target.PlaidAccessToken != "tok-1" {
		t.Errorf("PlaidAccessToken = %q, want tok-1", target.PlaidAccessToken)
	}
	if target.PlaidItemID != "item-1" {
		t.Errorf("PlaidItemID = %q, want item-1", target.PlaidItemID)
	}
	if target.AccountNumber != "000123451234" {
		t.Errorf("AccountNumber = %q, want full number", target.AccountNumber)
	}
	if target.AccountName == nil || *target.AccountName != "Checking" {
		t.Errorf("AccountName = %v, want Checking", target.AccountName)
	}
	if target.AccountLastFour == nil || *target.AccountLastFour != "1234" {
		t.Errorf("AccountLastFour = %v, want 1234", target.AccountLastFour)
	}
}

func TestResolveAccountsMatchesNameAgainstOfficialName(t *testing.T) {
	upstream := &mockUpstream{
		accounts: map[string]*AccountsResult{
			"tok-1": {
				Accounts: []domain.Account{
					{ID: "acc-1", Name: "Checking", OfficialName: "Premier Checking"},
				},
			},
		},
	}
	target := &domain.SyncTarget{
		AccountName:      strptr("Premier Checking"),
		FireflyAccountID: "7",
	}

	if err := ResolveAccounts(context.Background(), upstream, []string{"tok-1"}, []*domain.SyncTarget{target}); err != nil {
		t.Fatalf("ResolveAccounts failed: %v", err)
	}
	if target.ResolvedAccountID != "acc-1" {
		t.Errorf("ResolvedAccountID = %q, want acc-1", target.ResolvedAccountID)
	}
}

func TestResolveAccountsConjunctiveFields(t *testing.T) {
	// Name matches but last-four does not; the target must stay unresolved.
	upstream := &mockUpstream{
		accounts: map[string]*AccountsResult{
			"tok-1": {
				Accounts: []domain.Account{
					{ID: "acc-1", Name: "Checking", Mask: "1234"},
				},
			},
		},
	}
	target := &domain.SyncTarget{
		AccountName:      strptr("Checking"),
		AccountLastFour:  strptr("9999"),
		FireflyAccountID: "7",
	}

	if err := ResolveAccounts(context.Background(), upstream, []string{"tok-1"}, []*domain.SyncTarget{target}); err != nil {
		t.Fatalf("ResolveAccounts failed: %v", err)
	}
	if target.ResolvedAccountID != "" {
		t.Errorf("ResolvedAccountID = %q, want unresolved", target.ResolvedAccountID)
	}
}

func TestResolveAccountsIgnoresTargetWithoutIdentity(t *testing.T) {
	upstream := &mockUpstream{
		accounts: map[string]*AccountsResult{
			"tok-1": {
				Accounts: []domain.Account{{ID: "acc-1", Name: "Checking"}},
			},
		},
	}
	target := &domain.SyncTarget{FireflyAccountID: "7"}

	if err := ResolveAccounts(context.Background(), upstream, []string{"tok-1"}, []*domain.SyncTarget{target}); err != nil {
		t.Fatalf("ResolveAccounts failed: %v", err)
	}
	if target.ResolvedAccountID != "" {
		t.Error("target without identity fields must never match")
	}
}

func TestResolveAccountsUnknownAccountIsNotFatal(t *testing.T) {
	upstream := &mockUpstream{
		accounts: map[string]*AccountsResult{
			"tok-1": {
				Accounts: []domain.Account{
					{ID: "acc-unknown", Name: "Savings"},
					{ID: "acc-1", Name: "Checking"},
				},
			},
		},
	}
	target := &domain.SyncTarget{
		PlaidAccountID:   strptr("acc-1"),
		FireflyAccountID: "7",
	}

	if err := ResolveAccounts(context.Background(), upstream, []string{"tok-1"}, []*domain.SyncTarget{target}); err != nil {
		t.Fatalf("ResolveAccounts failed: %v", err)
	}
	if target.ResolvedAccountID != "acc-1" {
		t.Error("known account must still resolve when an unknown one is present")
	}
}

func TestResolveAccountsAmbiguousMatchIsFatal(t *testing.T) {
	upstream := &mockUpstream{
		accounts: map[string]*AccountsResult{
			"tok-1": {
				Accounts: []domain.Account{{ID: "acc-1", Name: "Checking", Mask: "1234"}},
			},
		},
	}
	targets := []*domain.SyncTarget{
		{AccountName: strptr("Checking"), FireflyAccountID: "7"},
		{AccountLastFour: strptr("1234"), FireflyAccountID: "8"},
	}

	err := ResolveAccounts(context.Background(), upstream, []string{"tok-1"}, targets)
	if !errors.Is(err, ErrAmbiguousMatch) {
		t.Fatalf("err = %v, want ErrAmbiguousMatch", err)
	}
}

func TestResolveAccountsProviderFailureIsFatal(t *testing.T) {
	upstream := &mockUpstream{accountsErr: errors.New("ITEM_LOGIN_REQUIRED")}
	target := &domain.SyncTarget{PlaidAccountID: strptr("acc-1"), FireflyAccountID: "7"}

	if err := ResolveAccounts(context.Background(), upstream, []string{"tok-1"}, []*domain.SyncTarget{target}); err == nil {
		t.Fatal("expected provider failure to be fatal")
	}
}
