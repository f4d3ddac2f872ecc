package engine

import (
	"github.com/cockroachdb/errors"

	"github.com/ayasaka/kidreel/internal/app/playback"
)

// New creates a media engine from configuration.
func New(engineType string, settings map[string]any) (playback.Engine, error) {
	switch engineType {
	case "sim", "":
		return NewSim(settings)
	default:
		return nil, errors.Newf("unsupported engine type: %s", engineType)
	}
}
