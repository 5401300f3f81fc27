// Package messaging talks to the WhatsApp bridge process over its local
// HTTP interface. The bridge's transport is a black box: this client only
// asks whether it is ready and hands messages over.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"flowbeat/internal/shared"
)

const bridgeTimeout = 10 * time.Second

// Status reports the bridge's connection state.
type Status struct {
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
	QRCode    string `json:"qr_code,omitempty"`
}

// Client talks to the bridge over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bridge client for the given base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// Ready reports whether the bridge is connected and able to send messages.
func (c *Client) Ready(ctx context.Context) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, bridgeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: bridge unreachable: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bridge status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode bridge status: %w", err)
	}

	return &status, nil
}

// Send delivers a message to a phone number through the bridge.
// The bridge must be ready; callers check [Client.Ready] first or handle
// [shared.ErrServiceUnavailable].
func (c *Client) Send(ctx context.Context, phoneNumber, message string) error {
	if phoneNumber == "" {
		return fmt.Errorf("%w: phone number", shared.ErrMissingArgument)
	}
	if message == "" {
		return fmt.Errorf("%w: message", shared.ErrMissingArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, bridgeTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"phone_number": phoneNumber,
		"message":      message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: bridge unreachable: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: send status %d: %s", shared.ErrUpstream, resp.StatusCode, string(text))
	}

	return nil
}
