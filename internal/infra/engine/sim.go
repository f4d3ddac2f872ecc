// Package engine provides media engine implementations for the playback
// controller. The shipped app binds the platform player here; this
// package carries the simulated engine used by the dev surfaces.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/ayasaka/kidreel/internal/app/playback"
)

// SimConfig represents simulated engine settings.
type SimConfig struct {
	LoadDelayMs        int     `mapstructure:"load_delay_ms" default:"200" validate:"gte=0"`
	DefaultDurationSec int     `mapstructure:"default_duration_sec" default:"30" validate:"gte=1"`
	SpeedFactor        float64 `mapstructure:"speed_factor" default:"1.0" validate:"gt=0"`
}

// Sim is a media engine that plays videos purely on timers.
type Sim struct {
	cfg SimConfig
}

// NewSim creates a simulated engine from settings.
func NewSim(settings map[string]any) (*Sim, error) {
	var cfg SimConfig
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &Sim{cfg: cfg}, nil
}

// NewHandle creates a handle for one video source.
func (e *Sim) NewHandle(sourceURL string) (playback.Handle, error) {
	if sourceURL == "" {
		return nil, errors.New("source URL is required")
	}
	duration := time.Duration(float64(e.cfg.DefaultDurationSec) * float64(time.Second) / e.cfg.SpeedFactor)
	return &simHandle{
		uri:       sourceURL,
		loadDelay: time.Duration(e.cfg.LoadDelayMs) * time.Millisecond,
		remaining: duration,
		updates:   make(chan playback.Status, 8),
	}, nil
}

// simHandle simulates one loaded video.
type simHandle struct {
	uri       string
	loadDelay time.Duration
	updates   chan playback.Status

	mu          sync.Mutex
	loaded      bool
	playing     bool
	unloaded    bool
	remaining   time.Duration
	startedAt   time.Time
	timerCancel func()
}

// Load simulates buffering, then reports loaded (and playing when
// autoplay is set).
func (h *simHandle) Load(ctx context.Context, autoplay bool) error {
	select {
	case <-time.After(h.loadDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return errors.New("handle is unloaded")
	}
	h.loaded = true
	if autoplay {
		h.startLocked()
	}
	h.emitLocked()
	return nil
}

// Play starts or resumes playback.
func (h *simHandle) Play(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded || !h.loaded {
		return errors.New("video is not loaded")
	}
	if h.playing {
		return nil
	}
	h.startLocked()
	h.emitLocked()
	return nil
}

// Pause pauses playback, keeping the position.
func (h *simHandle) Pause(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded || !h.loaded {
		return errors.New("video is not loaded")
	}
	if !h.playing {
		return nil
	}
	h.stopLocked()
	h.emitLocked()
	return nil
}

// Unload releases the handle. No further updates are emitted.
func (h *simHandle) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded {
		return nil
	}
	h.stopLocked()
	h.loaded = false
	h.unloaded = true
	close(h.updates)
	return nil
}

// Status returns the current status snapshot.
func (h *simHandle) Status() playback.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return playback.Status{
		IsLoaded:      h.loaded,
		IsPlaying:     h.playing,
		DidJustFinish: h.loaded && !h.playing && h.remaining == 0,
	}
}

// Updates returns the status notification channel.
func (h *simHandle) Updates() <-chan playback.Status {
	return h.updates
}

// startLocked begins the end-of-content timer for the remaining
// duration. Must be called with lock held.
func (h *simHandle) startLocked() {
	h.playing = true
	h.startedAt = toWallTime(time.Now())
	h.timerCancel = h.startWallClockTimer(h.remaining, h.onFinished)
}

// stopLocked cancels the timer and folds elapsed time into remaining.
// Must be called with lock held.
func (h *simHandle) stopLocked() {
	if h.timerCancel != nil {
		h.timerCancel()
		h.timerCancel = nil
	}
	if h.playing {
		elapsed := toWallTime(time.Now()).Sub(h.startedAt)
		h.remaining -= elapsed
		if h.remaining < 0 {
			h.remaining = 0
		}
	}
	h.playing = false
}

func (h *simHandle) onFinished() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unloaded || !h.playing {
		return
	}
	h.playing = false
	h.remaining = 0
	h.timerCancel = nil

	select {
	case h.updates <- playback.Status{IsLoaded: true, DidJustFinish: true}:
	default:
	}
}

// emitLocked sends the current status without blocking.
// Must be called with lock held.
func (h *simHandle) emitLocked() {
	if h.unloaded {
		return
	}
	select {
	case h.updates <- playback.Status{IsLoaded: h.loaded, IsPlaying: h.playing}:
	default:
	}
}

// startWallClockTimer triggers callback after duration using wall clock
// time, avoiding monotonic clock drift over long playback sessions.
// Returns a cancel function.
func (h *simHandle) startWallClockTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		endTime := toWallTime(time.Now()).Add(duration)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if toWallTime(time.Now()).After(endTime) {
					callback()
					return
				}
			}
		}
	}()

	return cancel
}

// toWallTime returns the time with the monotonic clock reading stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
