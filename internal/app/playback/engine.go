package playback

import "context"

// Status is a media engine status notification.
type Status struct {
	IsLoaded      bool
	IsPlaying     bool
	DidJustFinish bool
	Err           string // engine-reported error, empty when none
}

// Handle is a per-video media engine handle. The engine adapter only
// emits status updates; it never mutates controller state.
type Handle interface {
	// Load loads the source and starts playback when autoplay is set.
	Load(ctx context.Context, autoplay bool) error
	// Play starts or resumes playback of a loaded video.
	Play(ctx context.Context) error
	// Pause pauses playback.
	Pause(ctx context.Context) error
	// Unload releases the engine resources for this handle. Further
	// updates from the handle stop after Unload.
	Unload(ctx context.Context) error
	// Status returns the current status without waiting for a change.
	Status() Status
	// Updates returns the status notification channel for this handle.
	Updates() <-chan Status
}

// Engine creates per-video handles.
type Engine interface {
	NewHandle(sourceURL string) (Handle, error)
}

// ConnectivityChecker reports whether the device has network
// connectivity. Implementations fail open to true.
type ConnectivityChecker interface {
	IsConnected() bool
}

// SelectionStore is the persisted selection list the gate operates on.
// Implemented by the settings store.
type SelectionStore interface {
	IsSelected(id string) bool
	SelectedCount() int
	Selected() []string
	// ToggleSelectionCapped toggles id, refusing to add a new id once
	// limit selections exist (a negative limit disables the cap;
	// removal is never capped). The second result reports a refused
	// addition. Check and mutation are one atomic operation.
	ToggleSelectionCapped(id string, limit int) ([]string, bool, error)
}
