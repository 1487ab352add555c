// Package youtubeapi wraps the YouTube Data API for two lookups: the
// channel's most recent upload (plugged after ad breaks and by !newvideo) and
// whether the channel is currently live. Both are API-key calls; no OAuth.
package youtubeapi

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

const watchURL = "https://www.youtube.com/watch?v="

// Video is a single upload on the configured channel.
type Video struct {
	ID           string
	Title        string
	URL          string
	ThumbnailURL string
}

// LiveBroadcast describes the channel's current live video, if any.
type LiveBroadcast struct {
	VideoID      string
	Title        string
	ThumbnailURL string
}

type Service struct {
	ChannelID string
	svc       *yt.Service
}

// New builds a Service from an API key. Returns an error when the key is
// rejected outright; quota errors surface per call. Extra options let tests
// point the client at a local server.
func New(ctx context.Context, apiKey, channelID string, opts ...option.ClientOption) (*Service, error) {
	svc, err := yt.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Service{ChannelID: channelID, svc: svc}, nil
}

// LatestVideo returns the channel's most recent upload, or nil with no error
// when the channel has none.
func (s *Service) LatestVideo(ctx context.Context) (*Video, error) {
	resp, err := s.svc.Search.List([]string{"snippet"}).
		ChannelId(s.ChannelID).
		Order("date").
		Type("video").
		MaxResults(1).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube latest video: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	item := resp.Items[0]
	v := &Video{
		ID:    item.Id.VideoId,
		Title: item.Snippet.Title,
		URL:   watchURL + item.Id.VideoId,
	}
	if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
		v.ThumbnailURL = item.Snippet.Thumbnails.High.Url
	}
	return v, nil
}

// Live returns the channel's current live broadcast, or nil when offline.
func (s *Service) Live(ctx context.Context) (*LiveBroadcast, error) {
	resp, err := s.svc.Search.List([]string{"snippet"}).
		ChannelId(s.ChannelID).
		EventType("live").
		Type("video").
		MaxResults(1).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube live lookup: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	item := resp.Items[0]
	b := &LiveBroadcast{VideoID: item.Id.VideoId, Title: item.Snippet.Title}
	if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
		b.ThumbnailURL = item.Snippet.Thumbnails.High.Url
	}
	return b, nil
}
