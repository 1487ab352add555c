package youtubeapi

import (
	"context"

	"github.com/shassen14/boneless-couch/ads"
)

// VideoSource adapts the latest-upload lookup for the post-ad promo and the
// !newvideo command.
type VideoSource struct {
	Service *Service
}

func (vs *VideoSource) Latest(ctx context.Context) (*ads.LatestVideo, error) {
	v, err := vs.Service.LatestVideo(ctx)
	if err != nil || v == nil {
		return nil, err
	}
	return &ads.LatestVideo{Title: v.Title, URL: v.URL}, nil
}
