// Package identity consumes the identity-verification collaborator: it
// resolves a bearer credential to a stable user identifier and an optional
// email address.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Identity is the collaborator's answer for a verified bearer credential.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Client handles communication with the identity service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new identity client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve verifies a bearer credential. A non-200 answer means the
// credential did not verify.
func (c *Client) Resolve(ctx context.Context, bearer string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/whoami", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity service returned status %d: %s", resp.StatusCode, string(body))
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if id.UserID == "" {
		return nil, fmt.Errorf("identity service returned no user id")
	}

	return &id, nil
}
