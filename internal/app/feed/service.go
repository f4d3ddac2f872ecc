// Package feed composes the video feed shown to the child: content
// listing, connectivity, and restricted-mode filtering.
package feed

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
	"github.com/ayasaka/kidreel/internal/domain/video"
)

// Lister fetches the raw video feed.
type Lister interface {
	ListVideos(ctx context.Context) ([]video.Video, error)
}

// Settings is the slice of the settings store the feed reads.
type Settings interface {
	RestrictedMode() bool
	Selected() []string
}

// ConnectivityChecker reports device connectivity.
type ConnectivityChecker interface {
	IsConnected() bool
}

// Service provides the filtered video feed.
type Service struct {
	lister   Lister
	settings Settings
	conn     ConnectivityChecker
}

// New creates a feed service.
func New(lister Lister, settings Settings, conn ConnectivityChecker) *Service {
	return &Service{lister: lister, settings: settings, conn: conn}
}

// List returns the feed, filtered to the selected IDs when restricted
// mode is on. Fails fast with an offline error when connectivity is
// unavailable instead of attempting and timing out.
func (s *Service) List(ctx context.Context) ([]video.Video, error) {
	if !s.conn.IsConnected() {
		return nil, apperr.Offline("list videos")
	}

	videos, err := s.lister.ListVideos(ctx)
	if err != nil {
		return nil, err
	}

	if s.settings.RestrictedMode() {
		allowed := s.settings.Selected()
		filtered := video.FilterByIDs(videos, allowed)
		zlog.Debug().Msgf("feed: restricted mode, %d of %d videos visible", len(filtered), len(videos))
		return filtered, nil
	}
	return videos, nil
}
