package twitchapi

import (
	"context"

	"github.com/shassen14/boneless-couch/session"
)

// LiveSource adapts the Helix streams endpoint to the lifecycle tracker's
// liveness check.
type LiveSource struct {
	Helix *HelixClient
	Login string
}

func (ls *LiveSource) CheckLive(ctx context.Context) (*session.LiveStatus, error) {
	streams, err := ls.Helix.GetStreams(ctx, ls.Login)
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return &session.LiveStatus{}, nil
	}
	s := streams[0]
	return &session.LiveStatus{
		Live:         true,
		Title:        s.Title,
		Category:     s.GameName,
		ThumbnailURL: s.ThumbnailURL,
		ViewerCount:  s.ViewerCount,
		StartedAt:    s.StartedAt,
	}, nil
}
