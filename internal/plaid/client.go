// Package plaid implements the upstream provider client against the Plaid
// REST API. Only the three endpoints the connector needs are covered:
// auth/get (accounts with full numbers), accounts/balance/get (accounts
// without numbers, used as a fallback when the token lacks the auth product)
// and transactions/get.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
	"github.com/dvloznov/plaid-firefly-sync/internal/sync"
)

const dateLayout = "2006-01-02"

// transactionsPageSize is the number of transactions requested per page.
const transactionsPageSize = 500

var environments = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// Client talks to the Plaid API for one client id / secret pair.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
}

// New creates a Client for the given environment ("sandbox", "development"
// or "production").
func New(clientID, secret, environment string) (*Client, error) {
	baseURL, ok := environments[environment]
	if !ok {
		return nil, fmt.Errorf("unknown plaid environment %q", environment)
	}
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		http:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// NewWithBaseURL creates a Client against an explicit base URL. Used in tests.
func NewWithBaseURL(clientID, secret, baseURL string) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

type accountPayload struct {
	AccountID    string `json:"account_id"`
	Name         string `json:"name"`
	OfficialName string `json:"official_name"`
	Mask         string `json:"mask"`
}

type itemPayload struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

type accountsResponse struct {
	Accounts []accountPayload `json:"accounts"`
	Item     itemPayload      `json:"item"`
	Numbers  struct {
		ACH []struct {
			AccountID string `json:"account_id"`
			Account   string `json:"account"`
		} `json:"ach"`
	} `json:"numbers"`
}

type transactionPayload struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	IsoCurrency   string          `json:"iso_currency_code"`
	Date          string          `json:"date"`
	Pending       bool            `json:"pending"`
	CategoryID    string          `json:"category_id"`
	Category      []string        `json:"category"`
	Name          string          `json:"name"`
}

type transactionsResponse struct {
	Accounts          []accountPayload     `json:"accounts"`
	Transactions      []transactionPayload `json:"transactions"`
	TotalTransactions int                  `json:"total_transactions"`
	Item              itemPayload          `json:"item"`
}

// FetchAccounts resolves the accounts behind one access token. It asks the
// auth product first so account records carry full numbers; tokens without
// auth fall back to the balance endpoint.
func (c *Client) FetchAccounts(ctx context.Context, accessToken string) (*sync.AccountsResult, error) {
	var resp accountsResponse
	err := c.post(ctx, "/auth/get", map[string]any{
		"client_id":    c.clientID,
		"secret":       c.secret,
		"access_token": accessToken,
	}, &resp)
	withNumbers := err == nil
	if err != nil {
		if err = c.post(ctx, "/accounts/balance/get", map[string]any{
			"client_id":    c.clientID,
			"secret":       c.secret,
			"access_token": accessToken,
		}, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch accounts: %w", err)
		}
	}

	numbers := make(map[string]string)
	if withNumbers {
		for _, n := range resp.Numbers.ACH {
			numbers[n.AccountID] = n.Account
		}
	}

	result := &sync.AccountsResult{ItemID: resp.Item.ItemID}
	for _, a := range resp.Accounts {
		result.Accounts = append(result.Accounts, domain.Account{
			ID:            a.AccountID,
			Name:          a.Name,
			OfficialName:  a.OfficialName,
			Mask:          a.Mask,
			InstitutionID: resp.Item.InstitutionID,
			Number:        numbers[a.AccountID],
		})
	}
	return result, nil
}

// FetchTransactions returns every transaction in [start, end] for the token's
// accounts, paging through the provider's offset window.
func (c *Client) FetchTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]domain.Transaction, error) {
	var all []domain.Transaction
	offset := 0
	for {
		var resp transactionsResponse
		err := c.post(ctx, "/transactions/get", map[string]any{
			"client_id":    c.clientID,
			"secret":       c.secret,
			"access_token": accessToken,
			"start_date":   start.Format(dateLayout),
			"end_date":     end.Format(dateLayout),
			"options": map[string]any{
				"count":  transactionsPageSize,
				"offset": offset,
			},
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch transactions: %w", err)
		}

		for _, t := range resp.Transactions {
			txn, err := t.toDomain()
			if err != nil {
				return nil, err
			}
			all = append(all, txn)
		}

		offset += len(resp.Transactions)
		if offset >= resp.TotalTransactions || len(resp.Transactions) == 0 {
			break
		}
	}
	return all, nil
}

func (p transactionPayload) toDomain() (domain.Transaction, error) {
	date, err := time.Parse(dateLayout, p.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: bad date %q: %w", p.TransactionID, p.Date, err)
	}
	return domain.Transaction{
		ID:           p.TransactionID,
		AccountID:    p.AccountID,
		Amount:       p.Amount,
		CurrencyCode: p.IsoCurrency,
		Date:         date,
		Pending:      p.Pending,
		CategoryID:   p.CategoryID,
		Categories:   p.Category,
		Name:         p.Name,
	}, nil
}

// post sends one JSON request and decodes the response body into out. Any
// non-2xx status is an error carrying the provider's response body.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
