package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupSeenOrMark(t *testing.T) {
	d := NewDedup(10)

	assert.False(t, d.SeenOrMark("m1"))
	assert.True(t, d.SeenOrMark("m1"))
	assert.True(t, d.SeenOrMark("m1"))
	assert.False(t, d.SeenOrMark("m2"))
	assert.Equal(t, 2, d.Len())
}

func TestDedupClearsWholeCacheAtCapacity(t *testing.T) {
	d := NewDedup(3)

	for _, id := range []string{"a", "b", "c"} {
		assert.False(t, d.SeenOrMark(id))
	}
	assert.Equal(t, 3, d.Len())

	// The fourth id wipes everything, not just the oldest entry.
	assert.False(t, d.SeenOrMark("d"))
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, uint64(1), d.Resets())

	assert.False(t, d.SeenOrMark("c"), "ids from before the reset are forgotten")
	assert.True(t, d.SeenOrMark("d"))
}

func TestDedupDefaultCapacity(t *testing.T) {
	d := NewDedup(0)
	assert.Equal(t, DefaultDedupCapacity, d.capacity)
}
