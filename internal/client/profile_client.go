package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
)

// ProfileLookup supplies display data for a user id. Production wiring
// calls the profile enrichment service over HTTP; tests substitute a
// deterministic stand-in.
type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// HTTPProfileClient calls the profile enrichment service's REST API.
type HTTPProfileClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProfileClient creates a client for the given base URL.
func NewHTTPProfileClient(baseURL string, timeout time.Duration) *HTTPProfileClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProfileClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type profileEnvelope struct {
	Success bool            `json:"success"`
	Data    *domain.Profile `json:"data"`
}

// GetProfile fetches one user's profile.
func (c *HTTPProfileClient) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/%s/profile", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile service returned status %d for user %s", resp.StatusCode, userID)
	}

	var envelope profileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("profile service returned empty payload for user %s", userID)
	}

	return envelope.Data, nil
}
