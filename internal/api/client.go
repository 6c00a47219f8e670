// Package api is the typed client for the registree JSON API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FetchError reports a non-2xx response from the API server.
type FetchError struct {
	Message    string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// Client talks to one registree API server. It performs no retries
// and no caching; every call is a single GET.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ListRepositories fetches the registry's repository names.
func (c *Client) ListRepositories(ctx context.Context) (*RepositoryList, error) {
	var out RepositoryList
	if err := c.getJSON(ctx, "/repositories", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRevisions fetches a repository's revision digests and tags.
func (c *Client) ListRevisions(ctx context.Context, repository string) (*RevisionList, error) {
	var out RevisionList
	if err := c.getJSON(ctx, "/repositories/"+repository, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetManifest fetches one revision's manifest.
func (c *Client) GetManifest(ctx context.Context, repository, digest string) (*Manifest, error) {
	var out Manifest
	path := fmt.Sprintf("/revisions/%s/repository/%s", digest, repository)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "registree")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{
			Message:    fmt.Sprintf("GET %s: %s", path, resp.Status),
			StatusCode: resp.StatusCode,
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
