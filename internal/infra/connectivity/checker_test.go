package connectivity

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsConnected(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(WithProbeURL(srv.URL), WithTTL(time.Hour))
	assert.True(t, c.IsConnected())

	// Cached within the TTL.
	assert.True(t, c.IsConnected())
	assert.Equal(t, int32(1), hits.Load())
}

func TestIsConnected_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // probe target gone

	c := New(WithProbeURL(srv.URL), WithTTL(time.Millisecond))
	assert.False(t, c.IsConnected())
}

func TestIsConnected_ProbeSetupFailureFailsOpen(t *testing.T) {
	c := New(WithProbeURL("://not a url"), WithTTL(time.Millisecond))
	assert.True(t, c.IsConnected())
}
