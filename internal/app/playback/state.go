// Package playback provides the single-slot video playback state machine.
package playback

// State represents the playback slot state. At most one video occupies
// the slot at any time.
type State int

const (
	StateIdle    State = iota // Nothing playing
	StatePending              // A video is loading, not yet confirmed
	StatePlaying              // A video is playing (or paused, see Controller.Paused)
	StateErrored              // The slot's video failed to load or play
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StatePlaying:
		return "playing"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}
