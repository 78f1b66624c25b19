package presence

import (
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAddr(port int) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(zap.NewNop())
}

func TestMarkOnline_SingleSession(t *testing.T) {
	r := newRegistry(t)

	require.True(t, r.MarkOnline(1, testAddr(4000)))
	// Second login for the same user fails until MarkOffline.
	assert.False(t, r.MarkOnline(1, testAddr(4001)))

	r.MarkOffline(1)
	assert.True(t, r.MarkOnline(1, testAddr(4001)))
}

func TestLookup(t *testing.T) {
	r := newRegistry(t)

	assert.Nil(t, r.Lookup(7))

	addr := testAddr(4007)
	require.True(t, r.MarkOnline(7, addr))
	assert.Equal(t, addr, r.Lookup(7))

	r.MarkOffline(7)
	assert.Nil(t, r.Lookup(7))
}

func TestMarkOffline_UnknownUserIsNoop(t *testing.T) {
	r := newRegistry(t)
	r.MarkOffline(42)
	assert.Zero(t, r.Count())
}

func TestMarkOnline_ConcurrentClaims(t *testing.T) {
	r := newRegistry(t)

	const attempts = 32
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			if r.MarkOnline(99, testAddr(port)) {
				atomic.AddInt32(&wins, 1)
			}
		}(5000 + i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, 1, r.Count())
}

func TestSnapshot(t *testing.T) {
	r := newRegistry(t)
	require.True(t, r.MarkOnline(1, testAddr(4001)))
	require.True(t, r.MarkOnline(2, testAddr(4002)))

	snap := r.Snapshot()
	assert.Len(t, snap, 2)
	ids := []int64{snap[0].UserID, snap[1].UserID}
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestSweepIdle(t *testing.T) {
	r := newRegistry(t)
	require.True(t, r.MarkOnline(1, testAddr(4001)))
	require.True(t, r.MarkOnline(2, testAddr(4002)))

	// Backdate user 1's entry, then keep user 2 fresh.
	r.mu.Lock()
	r.entries[1].LastSeen = time.Now().Add(-time.Hour)
	r.mu.Unlock()
	r.Touch(2)

	evicted := r.SweepIdle(time.Minute)
	assert.Equal(t, []int64{1}, evicted)
	assert.Nil(t, r.Lookup(1))
	assert.NotNil(t, r.Lookup(2))
}

func TestTouch_RefreshesLastSeen(t *testing.T) {
	r := newRegistry(t)
	require.True(t, r.MarkOnline(1, testAddr(4001)))

	r.mu.Lock()
	r.entries[1].LastSeen = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	r.Touch(1)
	assert.Empty(t, r.SweepIdle(time.Minute))
}
