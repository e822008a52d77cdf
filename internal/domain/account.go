package domain

// Account is a raw account record returned by the upstream provider for one
// access token. Fields mirror what the provider exposes; Number is only
// populated when the auth endpoint grants full account numbers.
type Account struct {
	ID            string
	Name          string
	OfficialName  string
	Mask          string // last four digits
	InstitutionID string
	Number        string // full unmasked account number, if available
}

// SyncTarget links one provider account to one Firefly III account. The
// identity fields are optional and come from configuration; when set they are
// matched conjunctively against raw provider accounts. The resolver fills in
// the resolved fields once per process lifetime.
type SyncTarget struct {
	// Identity fields from configuration. A nil field means "don't care".
	PlaidAccountID       *string `mapstructure:"plaid_account_id"`
	AccountName          *string `mapstructure:"account_name"`
	AccountOfficialName  *string `mapstructure:"account_officialname"`
	AccountLastFour      *string `mapstructure:"account_lastfour"`
	AccountInstitutionID *string `mapstructure:"account_institution_id"`

	// Destination account in Firefly III.
	FireflyAccountID string `mapstructure:"firefly_account_id"`

	// Resolved by the account resolver at startup.
	ResolvedAccountID string `mapstructure:"-"`
	AccountNumber     string `mapstructure:"-"`
	PlaidAccessToken  string `mapstructure:"-"`
	PlaidItemID       string `mapstructure:"-"`
}

// HasIdentity reports whether at least one identity field is set, which is
// required for the target to be eligible for account matching at all.
func (t *SyncTarget) HasIdentity() bool {
	return t.PlaidAccountID != nil || t.AccountName != nil ||
		t.AccountOfficialName != nil || t.AccountLastFour != nil ||
		t.AccountInstitutionID != nil
}

// Matches reports whether the raw account satisfies every identity field the
// target specifies. The display-name field also accepts the account's
// official name, matching how banks report the same account under either.
func (t *SyncTarget) Matches(acct Account) bool {
	if !t.HasIdentity() {
		return false
	}
	if t.PlaidAccountID != nil && *t.PlaidAccountID != acct.ID {
		return false
	}
	if t.AccountName != nil && *t.AccountName != acct.Name && *t.AccountName != acct.OfficialName {
		return false
	}
	if t.AccountOfficialName != nil && *t.AccountOfficialName != acct.OfficialName {
		return false
	}
	if t.AccountLastFour != nil && *t.AccountLastFour != acct.Mask {
		return false
	}
	if t.AccountInstitutionID != nil && *t.AccountInstitutionID != acct.InstitutionID {
		return false
	}
	return true
}
