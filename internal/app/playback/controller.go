package playback

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
	"github.com/ayasaka/kidreel/internal/domain/video"
)

// Errors
var (
	ErrVideoNotFound   = errors.New("video not found")
	ErrNotPlaying      = errors.New("no video playing")
	ErrNotErrored      = errors.New("video is not in an error state")
	ErrRetryExhausted  = errors.New("retry limit reached")
	ErrUpgradeRequired = errors.New("selection limit reached, upgrade required")
)

// Config holds controller configuration.
type Config struct {
	LoadTimeout time.Duration // Budget for load-and-start before the attempt is failed
	MaxRetries  int           // Failed attempts per video before retry is disabled
	FreeLimit   int           // Selections permitted without an entitlement
}

// attempt is one load-and-start request. The generation ties late engine
// responses to the request that caused them; a stale generation is
// ignored rather than matched by video ID alone.
type attempt struct {
	gen     string
	videoID string
	handle  Handle
	cancel  context.CancelFunc // stops the status watcher
	timer   *time.Timer        // load timeout, nil once resolved
}

// Controller mediates the single playback slot across the video list and
// enforces the free-tier selection gate.
type Controller struct {
	mu sync.RWMutex

	engine     Engine
	selections SelectionStore
	conn       ConnectivityChecker
	cfg        Config

	videos []video.Video
	index  map[string]video.Video

	// Slot state
	state    State
	activeID string
	paused   bool
	current  *attempt

	// Per-video bookkeeping
	errs    map[string]string
	retries map[string]int

	entitled bool

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
func NewController(cfg Config, engine Engine, selections SelectionStore, conn ConnectivityChecker) *Controller {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 12 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.FreeLimit <= 0 {
		cfg.FreeLimit = 5
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		engine:     engine,
		selections: selections,
		conn:       conn,
		cfg:        cfg,
		index:      make(map[string]video.Video),
		state:      StateIdle,
		errs:       make(map[string]string),
		retries:    make(map[string]int),
		eventCh:    make(chan Event, 16),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// SetVideos replaces the playable list. Entries missing an ID or source
// URL are discarded.
func (c *Controller) SetVideos(vs []video.Video) {
	clean := video.Sanitize(vs)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.videos = clean
	c.index = make(map[string]video.Video, len(clean))
	for _, v := range clean {
		c.index[v.ID] = v
	}
}

// Videos returns a copy of the current playable list.
func (c *Controller) Videos() []video.Video {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]video.Video, len(c.videos))
	copy(out, c.videos)
	return out
}

// Play requests playback of the video with the given ID. Requesting the
// currently playing video toggles pause instead. A request while another
// video is pending supersedes it without recording an error for it.
func (c *Controller) Play(ctx context.Context, id string) error {
	c.mu.Lock()

	if c.activeID == id && c.state == StatePlaying {
		c.mu.Unlock()
		return c.TogglePause(ctx)
	}
	if c.activeID == id && c.state == StatePending {
		// Already loading this video.
		c.mu.Unlock()
		return nil
	}

	if c.retries[id] >= c.cfg.MaxRetries {
		// A fresh play request is not a back door around the failure
		// cap; the video stays disabled until it is reset.
		c.mu.Unlock()
		return ErrRetryExhausted
	}

	v, ok := c.index[id]
	if !ok || v.SourceURL == "" {
		// Never reaches Pending: fail the slot immediately.
		msg := "video source missing"
		if !ok {
			msg = "player not ready"
		}
		c.abandonCurrentLocked(c.state == StatePending)
		err := c.failSlotLocked(id, msg, false)
		c.mu.Unlock()
		return err
	}

	if isNetworkSource(v.SourceURL) && !c.conn.IsConnected() {
		// Fail fast instead of attempting and timing out.
		c.mu.Unlock()
		return apperr.Offline("play " + id)
	}

	c.pausePreviousLocked()
	c.abandonCurrentLocked(c.state == StatePending)
	c.startAttemptLocked(v)
	c.mu.Unlock()
	return nil
}

// TogglePause pauses or resumes the currently playing video.
func (c *Controller) TogglePause(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StatePlaying || c.current == nil {
		c.mu.Unlock()
		return ErrNotPlaying
	}
	att := c.current
	pausing := !c.paused
	c.mu.Unlock()

	var err error
	if pausing {
		err = att.handle.Pause(ctx)
	} else {
		err = att.handle.Play(ctx)
	}
	if err != nil {
		return &apperr.PlaybackError{VideoID: att.videoID, Message: err.Error()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.gen != att.gen {
		// Superseded while the engine call was in flight.
		return nil
	}
	c.paused = pausing
	if pausing {
		c.sendEventLocked(Event{Type: EventPaused, VideoID: att.videoID, State: c.state})
	} else {
		c.sendEventLocked(Event{Type: EventResumed, VideoID: att.videoID, State: c.state})
	}
	return nil
}

// Retry re-attempts a video that is in an error state. Permitted while
// the video has fewer than MaxRetries failed attempts; beyond that it is
// a no-op until ResetVideo is called.
func (c *Controller) Retry(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.errs[id]; !ok {
		return ErrNotErrored
	}
	if c.retries[id] >= c.cfg.MaxRetries {
		return ErrRetryExhausted
	}
	v, ok := c.index[id]
	if !ok || v.SourceURL == "" {
		return ErrVideoNotFound
	}
	if isNetworkSource(v.SourceURL) && !c.conn.IsConnected() {
		return apperr.Offline("retry " + id)
	}

	delete(c.errs, id)
	c.pausePreviousLocked()
	c.abandonCurrentLocked(c.state == StatePending)
	c.startAttemptLocked(v)
	return nil
}

// ResetVideo externally clears a video's error and retry bookkeeping.
func (c *Controller) ResetVideo(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.errs, id)
	delete(c.retries, id)
	if c.activeID == id && c.state == StateErrored {
		c.state = StateIdle
		c.activeID = ""
	}
}

// State returns the current slot state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ActiveID returns the ID occupying the slot, if any.
func (c *Controller) ActiveID() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeID, c.activeID != ""
}

// Paused reports whether the playing video is paused.
func (c *Controller) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StatePlaying && c.paused
}

// ErrorFor returns the recorded error message for a video.
func (c *Controller) ErrorFor(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msg, ok := c.errs[id]
	return msg, ok
}

// RetryCount returns the failed attempt count for a video.
func (c *Controller) RetryCount(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.retries[id]
}

// Snapshot is an observable copy of the controller state.
type Snapshot struct {
	State    State
	ActiveID string
	Paused   bool
	Entitled bool
	Errors   map[string]string
	Retries  map[string]int
}

// GetSnapshot returns a copy of the controller state.
func (c *Controller) GetSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	errs := make(map[string]string, len(c.errs))
	for k, v := range c.errs {
		errs[k] = v
	}
	retries := make(map[string]int, len(c.retries))
	for k, v := range c.retries {
		retries[k] = v
	}
	return Snapshot{
		State:    c.state,
		ActiveID: c.activeID,
		Paused:   c.state == StatePlaying && c.paused,
		Entitled: c.entitled,
		Errors:   errs,
		Retries:  retries,
	}
}

// RequestSelection toggles a video's selection. Deselection is always
// free; selection beyond FreeLimit requires the entitlement and returns
// ErrUpgradeRequired without mutating the list.
func (c *Controller) RequestSelection(id string) ([]string, error) {
	c.mu.RLock()
	entitled := c.entitled
	c.mu.RUnlock()

	limit := c.cfg.FreeLimit
	if entitled {
		limit = -1
	}
	ids, limited, err := c.selections.ToggleSelectionCapped(id, limit)
	if err != nil {
		return ids, err
	}
	if limited {
		return ids, ErrUpgradeRequired
	}
	return ids, nil
}

// SetEntitlement grants or revokes the unlimited-selection entitlement
// for this session.
func (c *Controller) SetEntitlement(granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entitled = granted
}

// Entitled reports whether the entitlement is granted.
func (c *Controller) Entitled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entitled
}

// Close releases the controller and unloads any active video.
func (c *Controller) Close() {
	c.mu.Lock()
	c.abandonCurrentLocked(true)
	c.state = StateIdle
	c.activeID = ""
	c.mu.Unlock()

	c.cancel()
	close(c.eventCh)
}

// startAttemptLocked moves the slot to Pending(v.ID) and starts the
// load-and-start sequence. Must be called with lock held.
func (c *Controller) startAttemptLocked(v video.Video) {
	handle, err := c.engine.NewHandle(v.SourceURL)
	if err != nil {
		_ = c.failSlotLocked(v.ID, "player not ready: "+err.Error(), false)
		return
	}

	watchCtx, cancelWatch := context.WithCancel(c.ctx)
	att := &attempt{
		gen:     uuid.NewString(),
		videoID: v.ID,
		handle:  handle,
		cancel:  cancelWatch,
	}
	att.timer = time.AfterFunc(c.cfg.LoadTimeout, func() {
		c.onLoadTimeout(att.gen)
	})

	c.current = att
	c.activeID = v.ID
	c.state = StatePending
	c.paused = false
	c.sendEventLocked(Event{Type: EventPending, VideoID: v.ID, State: StatePending})

	zlog.Debug().Msgf("playback: loading video=%s gen=%s", v.ID, att.gen)

	go c.watch(watchCtx, att)
	go func() {
		if err := handle.Load(watchCtx, true); err != nil {
			c.onAttemptError(att.gen, err.Error())
		}
	}()
}

// watch forwards engine status updates for one attempt. Stale updates
// are filtered by generation in onStatus.
func (c *Controller) watch(ctx context.Context, att *attempt) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-att.handle.Updates():
			if !ok {
				return
			}
			c.onStatus(att.gen, st)
		}
	}
}

// onStatus handles an engine status notification for the given attempt
// generation.
func (c *Controller) onStatus(gen string, st Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.gen != gen {
		zlog.Debug().Msgf("playback: ignoring stale status gen=%s", gen)
		return
	}
	att := c.current

	if st.Err != "" {
		c.resolveAttemptLocked(att)
		c.unloadAsync(att.handle)
		_ = c.failSlotLocked(att.videoID, st.Err, false)
		return
	}

	if st.DidJustFinish {
		// Natural end of content: release the engine resource.
		c.resolveAttemptLocked(att)
		c.unloadAsync(att.handle)
		c.current = nil
		c.state = StateIdle
		c.activeID = ""
		c.paused = false
		c.sendEventLocked(Event{Type: EventFinished, VideoID: att.videoID, State: StateIdle})
		return
	}

	if c.state == StatePending && st.IsLoaded {
		if !st.IsPlaying {
			// Loaded but paused: start playback explicitly and wait for
			// the playing confirmation.
			go func() {
				if err := att.handle.Play(context.Background()); err != nil {
					c.onAttemptError(att.gen, err.Error())
				}
			}()
			return
		}
		if att.timer != nil {
			att.timer.Stop()
			att.timer = nil
		}
		c.state = StatePlaying
		c.paused = false
		// A successful start clears the video's failure history.
		delete(c.errs, att.videoID)
		delete(c.retries, att.videoID)
		c.sendEventLocked(Event{Type: EventPlaying, VideoID: att.videoID, State: StatePlaying})
	}
}

// onAttemptError records a load/play failure for the given generation.
func (c *Controller) onAttemptError(gen, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.gen != gen {
		return
	}
	att := c.current
	c.resolveAttemptLocked(att)
	c.unloadAsync(att.handle)
	_ = c.failSlotLocked(att.videoID, msg, false)
}

// onLoadTimeout fails the attempt when the load budget expires. The
// in-flight load is cancelled and unloaded; a late success for this
// generation is ignored from then on.
func (c *Controller) onLoadTimeout(gen string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.gen != gen || c.state != StatePending {
		return
	}
	att := c.current
	c.resolveAttemptLocked(att)
	c.unloadAsync(att.handle)
	_ = c.failSlotLocked(att.videoID, "loading timed out", true)
}

// failSlotLocked moves the slot to Errored(id) and records the failure.
// Must be called with lock held.
func (c *Controller) failSlotLocked(id, msg string, timeout bool) error {
	c.current = nil
	c.state = StateErrored
	c.activeID = id
	c.paused = false
	c.errs[id] = msg
	c.retries[id]++

	zlog.Debug().Msgf("playback: video=%s errored (attempt %d): %s", id, c.retries[id], msg)
	c.sendEventLocked(Event{Type: EventErrored, VideoID: id, State: StateErrored, Message: msg})

	return &apperr.PlaybackError{VideoID: id, Message: msg, Timeout: timeout}
}

// pausePreviousLocked best-effort pauses the currently playing video
// before the slot moves on to a different one. Failures are logged,
// never surfaced. Must be called with lock held.
func (c *Controller) pausePreviousLocked() {
	if c.state != StatePlaying || c.current == nil || c.paused {
		return
	}
	prev := c.current
	go func() {
		if err := prev.handle.Pause(context.Background()); err != nil {
			zlog.Warn().Msgf("playback: failed to pause %s while switching: %v", prev.videoID, err)
		}
	}()
}

// abandonCurrentLocked drops the current attempt without recording an
// error for it. When unload is set the handle is released; a previously
// playing video keeps its handle loaded (it was paused best-effort).
// Must be called with lock held.
func (c *Controller) abandonCurrentLocked(unload bool) {
	if c.current == nil {
		return
	}
	att := c.current
	c.resolveAttemptLocked(att)
	if unload {
		c.unloadAsync(att.handle)
	}
	c.current = nil
}

// resolveAttemptLocked stops the attempt's watcher and timeout timer.
// Must be called with lock held.
func (c *Controller) resolveAttemptLocked(att *attempt) {
	att.cancel()
	if att.timer != nil {
		att.timer.Stop()
		att.timer = nil
	}
}

func (c *Controller) unloadAsync(h Handle) {
	go func() {
		if err := h.Unload(context.Background()); err != nil {
			zlog.Warn().Msgf("playback: unload failed: %v", err)
		}
	}()
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop event.
	}
}

// isNetworkSource reports whether the source URL requires connectivity.
func isNetworkSource(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
