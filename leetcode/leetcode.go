// Package leetcode fetches problem metadata from the LeetCode GraphQL API and
// community difficulty ratings from the zerotrac dataset.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultGraphQLURL = "https://leetcode.com/graphql"
	DefaultRatingsURL = "https://raw.githubusercontent.com/zerotrac/leetcode_problem_rating/main/ratings.txt"
)

// SubmissionURL builds the public link for a submission id.
func SubmissionURL(id string) string {
	return "https://leetcode.com/submissions/detail/" + id + "/"
}

const problemQuery = `query questionData($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    questionId
    title
    difficulty
    topicTags { name }
  }
}`

const recentAcQuery = `query recentAcSubmissions($username: String!, $limit: Int!) {
  recentAcSubmissionList(username: $username, limit: $limit) {
    id
    titleSlug
    timestamp
  }
}`

// Problem is the metadata for one LeetCode problem.
type Problem struct {
	ID         int
	Title      string
	Difficulty string
	Tags       []string
}

// Submission is one accepted submission from a user's recent history.
type Submission struct {
	ID        string
	TitleSlug string
	Timestamp string
}

type Client struct {
	GraphQLURL string
	RatingsURL string
	HTTPClient *http.Client

	mu      sync.RWMutex
	ratings map[int]float64
}

func NewClient() *Client {
	return &Client{
		GraphQLURL: DefaultGraphQLURL,
		RatingsURL: DefaultRatingsURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		ratings:    make(map[int]float64),
	}
}

// LoadRatings downloads and parses the zerotrac ratings file. A failure
// leaves ratings unavailable but is not fatal; problems log without one.
func (c *Client) LoadRatings(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RatingsURL, nil)
	if err != nil {
		return fmt.Errorf("ratings request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch ratings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch ratings: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ratings: %w", err)
	}

	loaded := make(map[int]float64)
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Format: Rating\tID\tTitle\t... with a header row to skip.
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		rating, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		loaded[id] = rating
	}

	c.mu.Lock()
	c.ratings = loaded
	c.mu.Unlock()
	slog.Info("loaded zerotrac ratings", slog.Int("count", len(loaded)))
	return nil
}

// Rating returns the zerotrac rating for a problem id, if known.
func (c *Client) Rating(problemID int) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.ratings[problemID]
	return r, ok
}

// FetchProblem looks up problem metadata by slug. A missing problem returns
// nil with no error.
func (c *Client) FetchProblem(ctx context.Context, slug string) (*Problem, error) {
	var out struct {
		Data struct {
			Question *struct {
				QuestionID string `json:"questionId"`
				Title      string `json:"title"`
				Difficulty string `json:"difficulty"`
				TopicTags  []struct {
					Name string `json:"name"`
				} `json:"topicTags"`
			} `json:"question"`
		} `json:"data"`
	}
	if err := c.graphql(ctx, problemQuery, map[string]any{"titleSlug": slug}, &out); err != nil {
		return nil, err
	}
	q := out.Data.Question
	if q == nil {
		return nil, nil
	}
	id, err := strconv.Atoi(q.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("parse question id %q: %w", q.QuestionID, err)
	}
	p := &Problem{ID: id, Title: q.Title, Difficulty: q.Difficulty}
	for _, t := range q.TopicTags {
		p.Tags = append(p.Tags, t.Name)
	}
	return p, nil
}

// RecentAccepted returns a user's most recent accepted submissions.
func (c *Client) RecentAccepted(ctx context.Context, username string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 10
	}
	var out struct {
		Data struct {
			List []struct {
				ID        string `json:"id"`
				TitleSlug string `json:"titleSlug"`
				Timestamp string `json:"timestamp"`
			} `json:"recentAcSubmissionList"`
		} `json:"data"`
	}
	if err := c.graphql(ctx, recentAcQuery, map[string]any{"username": username, "limit": limit}, &out); err != nil {
		return nil, err
	}
	subs := make([]Submission, 0, len(out.Data.List))
	for _, s := range out.Data.List {
		subs = append(subs, Submission{ID: s.ID, TitleSlug: s.TitleSlug, Timestamp: s.Timestamp})
	}
	return subs, nil
}

func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return fmt.Errorf("marshal graphql payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GraphQLURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphql call: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	return nil
}
