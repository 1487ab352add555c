package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultHelixBase = "https://api.twitch.tv/helix"

// UserTokenFunc supplies a broadcaster user access token for endpoints that
// require one (start commercial). The ad scheduler wires this to the stored
// oauth_tokens row so refreshes are picked up automatically.
type UserTokenFunc func(ctx context.Context) (string, error)

// HelixClient provides the handful of Helix calls the bot needs.
type HelixClient struct {
	AppTokenSource oauth2.TokenSource
	ClientID       string
	BaseURL        string // override for tests; default https://api.twitch.tv/helix
	HTTPClient     *http.Client
	UserToken      UserTokenFunc
}

// Stream is one live stream as reported by GET /helix/streams.
type Stream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	Title        string    `json:"title"`
	GameName     string    `json:"game_name"`
	ViewerCount  int       `json:"viewer_count"`
	ThumbnailURL string    `json:"thumbnail_url"`
	StartedAt    time.Time `json:"started_at"`
}

// Clip is one clip as reported by GET /helix/clips.
type Clip struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return strings.TrimRight(hc.BaseURL, "/")
	}
	return defaultHelixBase
}

func (hc *HelixClient) appGet(ctx context.Context, path string, q url.Values, out any) error {
	tok, err := hc.AppTokenSource.Token()
	if err != nil {
		return fmt.Errorf("app token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+path, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := defaultHTTP(hc.HTTPClient).Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("helix %s failed: %s: %s", path, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetUserID resolves a login name to its numeric user id.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	q := url.Values{}
	q.Set("login", login)
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.appGet(ctx, "/users", q, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found")
	}
	return body.Data[0].ID, nil
}

// GetStreams returns the live streams for a login; an empty slice means the
// channel is offline.
func (hc *HelixClient) GetStreams(ctx context.Context, login string) ([]Stream, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	q := url.Values{}
	q.Set("user_login", login)
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := hc.appGet(ctx, "/streams", q, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetClips lists clips for a broadcaster created at or after startedAt.
func (hc *HelixClient) GetClips(ctx context.Context, broadcasterID string, startedAt time.Time) ([]Clip, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("first", "50")
	if !startedAt.IsZero() {
		q.Set("started_at", startedAt.UTC().Format(time.RFC3339))
	}
	var body struct {
		Data []Clip `json:"data"`
	}
	if err := hc.appGet(ctx, "/clips", q, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// StartCommercial starts an ad break of the given whole-second length on the
// broadcaster's channel. Requires a user token with channel:edit:commercial.
// Returns the length Twitch actually ran, which can be shorter than requested.
func (hc *HelixClient) StartCommercial(ctx context.Context, broadcasterID string, length int) (int, error) {
	if broadcasterID == "" {
		return 0, fmt.Errorf("broadcasterID empty")
	}
	if hc.UserToken == nil {
		return 0, fmt.Errorf("no user token source configured")
	}
	tok, err := hc.UserToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("user token: %w", err)
	}
	if tok == "" {
		return 0, fmt.Errorf("no broadcaster token stored (authorize channel:edit:commercial first)")
	}
	payload := map[string]any{"broadcaster_id": broadcasterID, "length": length}
	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hc.base()+"/channels/commercial", strings.NewReader(buf.String()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	resp, err := defaultHTTP(hc.HTTPClient).Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("helix start commercial failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Data []struct {
			Length     int    `json:"length"`
			Message    string `json:"message"`
			RetryAfter int    `json:"retry_after"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if len(body.Data) == 0 {
		return length, nil
	}
	if body.Data[0].Message != "" {
		slog.Debug("start commercial response", slog.String("message", body.Data[0].Message), slog.String("retry_after", strconv.Itoa(body.Data[0].RetryAfter)))
	}
	return body.Data[0].Length, nil
}
