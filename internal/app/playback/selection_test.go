package playback

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayasaka/kidreel/internal/app/settings"
	"github.com/ayasaka/kidreel/internal/infra/storage"
)

func TestRequestSelection_FreeLimit(t *testing.T) {
	c, _, _ := newTestController(Config{FreeLimit: 5})
	defer c.Close()

	// Five free selections succeed.
	for i := 0; i < 5; i++ {
		_, err := c.RequestSelection(fmt.Sprintf("vid-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, c.selections.SelectedCount())

	// The sixth is denied without mutating the list.
	_, err := c.RequestSelection("vid-5")
	assert.ErrorIs(t, err, ErrUpgradeRequired)
	assert.Equal(t, 5, c.selections.SelectedCount())
	assert.False(t, c.selections.IsSelected("vid-5"))
}

func TestRequestSelection_DeselectionAlwaysFree(t *testing.T) {
	c, _, _ := newTestController(Config{FreeLimit: 5})
	defer c.Close()

	for i := 0; i < 5; i++ {
		_, err := c.RequestSelection(fmt.Sprintf("vid-%d", i))
		require.NoError(t, err)
	}

	// At the cap, deselecting still works.
	ids, err := c.RequestSelection("vid-2")
	require.NoError(t, err)
	assert.Len(t, ids, 4)
	assert.False(t, c.selections.IsSelected("vid-2"))

	// And the freed slot can be reused.
	_, err = c.RequestSelection("vid-9")
	require.NoError(t, err)
	assert.True(t, c.selections.IsSelected("vid-9"))
}

func TestRequestSelection_EntitlementLiftsLimit(t *testing.T) {
	c, _, _ := newTestController(Config{FreeLimit: 5})
	defer c.Close()

	for i := 0; i < 5; i++ {
		_, err := c.RequestSelection(fmt.Sprintf("vid-%d", i))
		require.NoError(t, err)
	}
	_, err := c.RequestSelection("vid-5")
	require.ErrorIs(t, err, ErrUpgradeRequired)

	// After a successful purchase the caller retries the same toggle.
	c.SetEntitlement(true)
	ids, err := c.RequestSelection("vid-5")
	require.NoError(t, err)
	assert.Len(t, ids, 6)
	assert.True(t, c.Entitled())

	_, err = c.RequestSelection("vid-6")
	assert.NoError(t, err)
}

func TestRequestSelection_ConcurrentRequestsNeverExceedLimit(t *testing.T) {
	// Real settings store: the cap check and the toggle share one
	// critical section, so racing requests cannot both pass the gate.
	st := settings.New(storage.NewMemStore())
	st.Load()
	c := NewController(Config{FreeLimit: 5}, &fakeEngine{}, st, &fakeConn{})
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = c.RequestSelection(fmt.Sprintf("vid-%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, st.SelectedCount())
}
