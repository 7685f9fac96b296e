package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"converse-service/internal/models"
)

var (
	// ErrUnauthorized is returned when the session token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstreamShape is returned when the provider responds with an
	// unexpected payload shape.
	ErrUpstreamShape = errors.New("unexpected identity provider response")
)

// maxResponseSize bounds identity provider response bodies.
const maxResponseSize = 1 << 20

// Client talks to the hosted identity provider over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs the identity client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 10 * time.Second,
		},
	}
}

type identityUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// VerifySession resolves a session token to the authenticated user.
func (c *Client) VerifySession(ctx context.Context, token string) (models.UserRef, error) {
	if token == "" {
		return models.UserRef{}, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return models.UserRef{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.UserRef{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return models.UserRef{}, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.UserRef{}, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return models.UserRef{}, fmt.Errorf("identity provider status %d", resp.StatusCode)
	}

	var user identityUser
	if err := json.Unmarshal(body, &user); err != nil || user.ID == "" {
		return models.UserRef{}, fmt.Errorf("%w: %s", ErrUpstreamShape, truncate(body))
	}
	return models.UserRef{ID: user.ID, DisplayName: user.Username, AvatarURL: user.ImageURL}, nil
}

// ListUsers queries the provider's user directory. An empty query browses
// the directory; otherwise records matching the query are returned. The
// provider is expected to answer with a list-shaped body.
func (c *Client) ListUsers(ctx context.Context, query string, limit int) ([]models.SearchedUser, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if query != "" {
		params.Set("query", query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider status %d: %s", resp.StatusCode, truncate(body))
	}

	var records []identityUser
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamShape, truncate(body))
	}

	users := make([]models.SearchedUser, 0, len(records))
	for _, rec := range records {
		user := models.SearchedUser{
			ID:       rec.ID,
			Username: rec.Username,
			ImageURL: rec.ImageURL,
		}
		if len(rec.EmailAddresses) > 0 {
			user.PrimaryEmailAddress = rec.EmailAddresses[0].EmailAddress
		}
		users = append(users, user)
	}
	return users, nil
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
