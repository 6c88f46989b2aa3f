package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

type reserveRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}

// settleRequest is the body of /wallet/commit and /wallet/refund.
type settleRequest struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}

type reserveResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

// Client pays entry fees through a wallet service's /wallet/reserve endpoint.
// Accounts are the user ids themselves once connected.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu        sync.Mutex
	connected map[string]string
}

func NewClient(base string) *Client {
	return &Client{
		BaseURL:   base,
		HTTP:      &http.Client{Timeout: 2 * time.Second},
		connected: make(map[string]string),
	}
}

func (c *Client) Account(userID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.connected[userID]
	return a, ok
}

// Connect checks the wallet exists (creating it server side) via GET /wallet.
func (c *Client) Connect(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrNotConnected
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/wallet?userId="+url.QueryEscape(userID), nil)
	if err != nil {
		return "", err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: wallet http %d", ErrNotConnected, res.StatusCode)
	}

	c.mu.Lock()
	c.connected[userID] = userID
	c.mu.Unlock()
	return userID, nil
}

func (c *Client) SendPayment(ctx context.Context, account string, amountCents int64, roomID int) (string, error) {
	if account == "" {
		return "", fmt.Errorf("room %d: %w: %w", roomID, ErrPaymentFailed, ErrNotConnected)
	}
	body, _ := json.Marshal(reserveRequest{
		UserID:      account,
		AmountCents: amountCents,
		ExternalRef: ExternalRef(account, roomID),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/wallet/reserve", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("room %d: %w: %w", roomID, ErrPaymentFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("room %d: %w: %w", roomID, ErrPaymentFailed, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("room %d: %w: wallet reserve http %d", roomID, ErrPaymentFailed, res.StatusCode)
	}
	var out reserveResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("room %d: %w: %w", roomID, ErrPaymentFailed, err)
	}
	if out.ReservationID == "" {
		return "", fmt.Errorf("room %d: %w: empty reservation id", roomID, ErrPaymentFailed)
	}
	return out.ReservationID, nil
}

// Commit turns the held entry fee into a charge.
func (c *Client) Commit(ctx context.Context, account string, roomID int) error {
	return c.settle(ctx, "/wallet/commit", account, roomID)
}

// Refund releases the held entry fee back to the user.
func (c *Client) Refund(ctx context.Context, account string, roomID int) error {
	return c.settle(ctx, "/wallet/refund", account, roomID)
}

func (c *Client) settle(ctx context.Context, path, account string, roomID int) error {
	body, _ := json.Marshal(settleRequest{UserID: account, ExternalRef: ExternalRef(account, roomID)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("room %d: %s: %w", roomID, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("room %d: %s: %w", roomID, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("room %d: %s: wallet http %d", roomID, path, res.StatusCode)
	}
	return nil
}
