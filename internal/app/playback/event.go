package playback

// EventType represents a playback event type.
type EventType int

const (
	EventPending  EventType = iota // Load requested, awaiting confirmation
	EventPlaying                   // Video confirmed loaded and playing
	EventPaused                    // Active video paused by the user
	EventResumed                   // Active video resumed by the user
	EventFinished                  // Video reached natural end of content
	EventErrored                   // Video failed to load or play
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventPending:
		return "pending"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventFinished:
		return "finished"
	case EventErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Event represents a playback event for UI consumers.
type Event struct {
	Type    EventType
	VideoID string
	State   State  // Slot state after the transition
	Message string // Error message for EventErrored, empty otherwise
}
