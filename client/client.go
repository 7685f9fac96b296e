// Package client is a Go client for the converse service API. Besides the
// plain HTTP calls it carries the interactive state helpers the chat UI is
// built on: debounced directory search, the group-composer wizard and the
// group membership manager.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"converse-service/internal/models"
)

// maxResponseSize bounds API response bodies.
const maxResponseSize = 1 << 20

// Client calls the converse service with a bearer session token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New constructs a Client.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 15 * time.Second,
		},
	}
}

// Member is one annotated row of a group's membership list.
type Member struct {
	models.UserRef
	IsYou     bool `json:"is_you"`
	IsCreator bool `json:"is_creator"`
	Removable bool `json:"removable"`
}

// SearchUsers queries the user directory.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.SearchedUser, error) {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	var resp struct {
		Users []models.SearchedUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Conversations lists the caller's conversations.
func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// Candidates returns the group-composer candidate set.
func (c *Client) Candidates(ctx context.Context) ([]models.UserRef, error) {
	var resp struct {
		Candidates []models.UserRef `json:"candidates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations/candidates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// CreateGroup creates a group conversation.
func (c *Client) CreateGroup(ctx context.Context, name string, members []models.UserRef) (models.Conversation, error) {
	body := map[string]any{"name": name, "members": members}
	var resp struct {
		Group models.Conversation `json:"group"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/groups", body, &resp); err != nil {
		return models.Conversation{}, err
	}
	return resp.Group, nil
}

// GroupMembers returns the annotated membership list of a group.
func (c *Client) GroupMembers(ctx context.Context, groupID string) ([]Member, error) {
	var resp struct {
		Members []Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/groups/"+url.PathEscape(groupID)+"/members", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// GroupCandidates returns users addable to the group, filtered by term.
func (c *Client) GroupCandidates(ctx context.Context, groupID, term string) ([]models.UserRef, error) {
	params := url.Values{}
	if term != "" {
		params.Set("term", term)
	}
	var resp struct {
		Candidates []models.UserRef `json:"candidates"`
	}
	path := "/api/groups/" + url.PathEscape(groupID) + "/candidates?" + params.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// AddMembers adds the whole batch to the group in one call.
func (c *Client) AddMembers(ctx context.Context, groupID string, members []models.UserRef) error {
	body := map[string]any{"members": members}
	return c.do(ctx, http.MethodPost, "/api/groups/"+url.PathEscape(groupID)+"/members", body, nil)
}

// RemoveMember removes a single member from the group.
func (c *Client) RemoveMember(ctx context.Context, groupID, userID string) error {
	path := "/api/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("%s", failure.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
