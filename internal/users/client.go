// internal/users/client.go
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Profile is the public slice of a user record used for lobby display.
type Profile struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
}

// Client fetches public profiles from the user service. Without a configured
// base URL it synthesizes placeholder usernames, which keeps local
// development independent of the user service.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if c.baseURL == "" {
		return &Profile{
			UserID:   userID,
			Username: "user_" + userID.String()[:6],
		}, nil
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user service returned %d for %s", resp.StatusCode, userID)
	}

	var body struct {
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("user service: %w", err)
	}

	return &Profile{
		UserID:   userID,
		Username: body.Username,
		Avatar:   body.Avatar,
	}, nil
}
