package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheReplacesWholesale(t *testing.T) {
	c := NewCache()
	snap, version := c.Latest()
	assert.Nil(t, snap)
	assert.Equal(t, -1, version)

	v0 := &Snapshot{Version: 0, RoomCode: "ABCDEF", Night: 0}
	require.True(t, c.Apply(v0))

	v1 := &Snapshot{Version: 1, RoomCode: "ABCDEF", Night: 1}
	require.True(t, c.Apply(v1))

	snap, version = c.Latest()
	assert.Equal(t, 1, version)
	// No field-level merging: the old snapshot is gone entirely.
	assert.Same(t, v1, snap)
}

func TestCacheDropsStaleAndDuplicate(t *testing.T) {
	c := NewCache()
	require.True(t, c.Apply(&Snapshot{Version: 5}))

	assert.False(t, c.Apply(&Snapshot{Version: 5}), "duplicate delivery accepted")
	assert.False(t, c.Apply(&Snapshot{Version: 3}), "out-of-order delivery accepted")
	assert.False(t, c.Apply(nil))

	_, version := c.Latest()
	assert.Equal(t, 5, version)
}

func TestCacheStale(t *testing.T) {
	c := NewCache()
	require.True(t, c.Apply(&Snapshot{Version: 2}))

	assert.False(t, c.Stale(2))
	assert.False(t, c.Stale(1))
	// A heartbeat advertising a newer version means a broadcast was missed;
	// the client should re-request a full snapshot.
	assert.True(t, c.Stale(3))
}
