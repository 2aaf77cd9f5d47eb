// Package pinger talks to the execution collaborator that performs the
// actual window-opening ping with the user's credential.
package pinger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is the signed payload sent to the executor. Credential is
// transit-encrypted; Signature is HMAC-SHA256 over the decrypted credential
// and Timestamp (unix seconds), verified by the receiver.
type Request struct {
	Credential string `json:"credential"`
	Timestamp  int64  `json:"timestamp"`
	Signature  string `json:"signature"`
}

// Result is the executor's verdict. ExpiresAt is set only when the executor
// learned the exact window expiry.
type Result struct {
	Success   bool       `json:"success"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Client handles communication with the ping executor.
type Client struct {
	baseURL    string
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates a new executor client. In stub mode every ping succeeds
// without a network call, for local development.
func NewClient(baseURL string, stubMode bool) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
	}
}

// Execute performs one ping. A timeout or transport error is returned as-is;
// the caller treats any error as a failed ping.
func (c *Client) Execute(ctx context.Context, r Request) (*Result, error) {
	if c.stubMode {
		return &Result{Success: true}, nil
	}

	jsonData, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/ping", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("executor returned status %d: %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
