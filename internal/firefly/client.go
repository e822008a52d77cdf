// Package firefly implements the downstream ledger client against the
// Firefly III v1 transactions API.
package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/plaid-firefly-sync/internal/domain"
)

// Client stores transactions in a Firefly III instance.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client for the Firefly III instance at baseURL.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// splitPayload is the v1 API shape of one split. Firefly takes amounts as
// strings and account references as either an id or a free-form name.
type splitPayload struct {
	Type            string   `json:"type"`
	Date            string   `json:"date"`
	ProcessDate     string   `json:"process_date,omitempty"`
	Description     string   `json:"description"`
	Amount          string   `json:"amount"`
	CurrencyCode    string   `json:"currency_code,omitempty"`
	ExternalID      string   `json:"external_id,omitempty"`
	SourceID        string   `json:"source_id,omitempty"`
	SourceName      string   `json:"source_name,omitempty"`
	DestinationID   string   `json:"destination_id,omitempty"`
	DestinationName string   `json:"destination_name,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

type storeRequest struct {
	Transactions []splitPayload `json:"transactions"`
}

type storeResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// StoreTransaction stores the splits as one transaction and returns the id
// Firefly assigned to it.
func (c *Client) StoreTransaction(ctx context.Context, splits []domain.Split) (string, error) {
	reqBody := storeRequest{}
	for _, s := range splits {
		payload := splitPayload{
			Type:            string(s.Type),
			Date:            s.Date.Format("2006-01-02"),
			Description:     s.Description,
			Amount:          s.Amount.String(),
			CurrencyCode:    s.CurrencyCode,
			ExternalID:      s.ExternalID,
			SourceID:        s.SourceID,
			SourceName:      s.SourceName,
			DestinationID:   s.DestinationID,
			DestinationName: s.DestinationName,
			Tags:            s.Tags,
		}
		if !s.ProcessDate.IsZero() {
			payload.ProcessDate = s.ProcessDate.Format("2006-01-02")
		}
		reqBody.Transactions = append(reqBody.Transactions, payload)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to store transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("firefly returned status %d: %s", resp.StatusCode, detail)
	}

	var stored storeResponse
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return "", fmt.Errorf("failed to decode store response: %w", err)
	}
	return stored.Data.ID, nil
}
