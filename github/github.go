// Package github fetches repository metadata for the !project command.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultAPIBase = "https://api.github.com"

// Repo is the slice of repository metadata the bot cares about.
type Repo struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
}

type Client struct {
	APIBase    string
	Token      string // optional; unauthenticated works within rate limits
	HTTPClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		APIBase:    DefaultAPIBase,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchRepo looks up a repository. A 404 returns nil with no error.
func (c *Client) FetchRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", c.APIBase, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("repo request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch repo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch repo: status %d", resp.StatusCode)
	}
	var r Repo
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode repo: %w", err)
	}
	return &r, nil
}

// ParseRepoURL extracts owner and repo from a github.com URL.
func ParseRepoURL(url string) (owner, repo string, ok bool) {
	_, path, found := strings.Cut(url, "github.com/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
