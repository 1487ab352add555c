package youtubeapi

import (
	"context"

	"github.com/shassen14/boneless-couch/session"
)

// LiveSource adapts the Data API live lookup to the lifecycle tracker's
// liveness check. YouTube search results carry no category or viewer count;
// those fall back to the tracker's defaults.
type LiveSource struct {
	Service *Service
}

func (ls *LiveSource) CheckLive(ctx context.Context) (*session.LiveStatus, error) {
	b, err := ls.Service.Live(ctx)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &session.LiveStatus{}, nil
	}
	return &session.LiveStatus{
		Live:         true,
		Title:        b.Title,
		ThumbnailURL: b.ThumbnailURL,
	}, nil
}
