// Package discord is a minimal REST client for the handful of Discord calls
// the bot makes: channel messages, replies, and forum posts. Message ids come
// back as opaque strings for later threading.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultAPIBase = "https://discord.com/api/v10"

// Brand colors for embeds.
const (
	ColorPrimary = 0x57F287 // green
	ColorTwitch  = 0x9146FF // twitch purple
	ColorYouTube = 0xED4245 // red
)

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedImage struct {
	URL string `json:"url"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Client struct {
	Token      string
	APIBase    string
	HTTPClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		Token:      token,
		APIBase:    DefaultAPIBase,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type messagePayload struct {
	Content          string      `json:"content,omitempty"`
	Embeds           []Embed     `json:"embeds,omitempty"`
	MessageReference *messageRef `json:"message_reference,omitempty"`
}

type messageRef struct {
	MessageID string `json:"message_id"`
	// Reply even if the referenced message has since been deleted.
	FailIfNotExists bool `json:"fail_if_not_exists"`
}

// SendMessage posts content and/or an embed to a channel, optionally as a
// reply, and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, channelID, content string, embed *Embed, replyTo string) (string, error) {
	p := messagePayload{Content: content}
	if embed != nil {
		p.Embeds = []Embed{*embed}
	}
	if replyTo != "" {
		p.MessageReference = &messageRef{MessageID: replyTo}
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, fmt.Sprintf("/channels/%s/messages", channelID), p, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

type forumPayload struct {
	Name    string         `json:"name"`
	Message messagePayload `json:"message"`
}

// CreateForumPost opens a new thread in a forum channel with an embed as its
// starter message and returns the thread id.
func (c *Client) CreateForumPost(ctx context.Context, forumID, name string, embed *Embed) (string, error) {
	if len(name) > 100 {
		name = name[:100]
	}
	p := forumPayload{Name: name, Message: messagePayload{Embeds: []Embed{*embed}}}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, fmt.Sprintf("/channels/%s/threads", forumID), p, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord call %s: status %d: %s", path, resp.StatusCode, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode discord response: %w", err)
		}
	}
	return nil
}
