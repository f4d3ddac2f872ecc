// Package connectivity provides a best-effort network reachability probe.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

const defaultProbeURL = "https://www.gstatic.com/generate_204"

// Checker probes an HTTP endpoint to decide whether the device is
// online. Probe failures of the checker itself fail open to connected,
// so a broken probe never blocks playback.
type Checker struct {
	probeURL   string
	httpClient *http.Client
	ttl        time.Duration

	mu        sync.Mutex
	lastState bool
	lastProbe time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithProbeURL overrides the probe endpoint.
func WithProbeURL(url string) Option {
	return func(c *Checker) { c.probeURL = url }
}

// WithTTL overrides how long a probe result is reused.
func WithTTL(ttl time.Duration) Option {
	return func(c *Checker) { c.ttl = ttl }
}

// New creates a connectivity checker.
func New(opts ...Option) *Checker {
	c := &Checker{
		probeURL:   defaultProbeURL,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		ttl:        10 * time.Second,
		lastState:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConnected reports whether the device appears to have connectivity.
// Results are cached for the configured TTL.
func (c *Checker) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastProbe) < c.ttl {
		return c.lastState
	}

	c.lastState = c.probe()
	c.lastProbe = time.Now()
	return c.lastState
}

func (c *Checker) probe() bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.probeURL, nil)
	if err != nil {
		// Internal probe failure: fail open.
		zlog.Warn().Msgf("connectivity: probe setup failed, assuming online: %v", err)
		return true
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
