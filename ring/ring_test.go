package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewRoundsCapacity verifies capacity is rounded up to a power of two
func TestNewRoundsCapacity(t *testing.T) {
	tests := []struct {
		requested int
		expected  int
	}{
		{-1, 2},
		{0, 2},
		{1, 2},
		{2, 2},
		{3, 4},
		{8, 8},
		{1000, 1024},
		{1024, 1024},
		{1025, 2048},
	}

	for _, tt := range tests {
		r := New[int](tt.requested)
		assert.Equal(t, tt.expected, r.Cap(), "requested %d", tt.requested)
	}
}

// TestFIFOOrder verifies values come out in push order and occupancy tracks pushes minus pops
func TestFIFOOrder(t *testing.T) {
	r := New[int](8)

	for i := 0; i < 5; i++ {
		require.True(t, r.TryPush(i))
	}
	assert.Equal(t, 5, r.Len())

	for i := 0; i < 3; i++ {
		v, ok := r.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 2, r.Len())

	// Wrap around the end of the slot array
	for i := 5; i < 11; i++ {
		require.True(t, r.TryPush(i))
	}
	assert.Equal(t, 8, r.Len())

	for i := 3; i < 11; i++ {
		v, ok := r.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	_, ok := r.TryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

// TestFullRingDrops verifies pushes into a full ring fail and are counted once each
func TestFullRingDrops(t *testing.T) {
	r := New[int](4)

	for i := 0; i < 4; i++ {
		require.True(t, r.TryPush(i))
	}

	for i := 0; i < 3; i++ {
		assert.False(t, r.TryPush(100+i))
	}
	assert.Equal(t, uint64(3), r.Dropped())
	assert.Equal(t, 4, r.Len())

	// Contents unchanged by the failed pushes
	for i := 0; i < 4; i++ {
		v, ok := r.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

// TestPopEmpty verifies popping an empty ring returns the zero value
func TestPopEmpty(t *testing.T) {
	r := New[string](2)
	v, ok := r.TryPop()
	assert.False(t, ok)
	assert.Empty(t, v)
}

// TestConcurrentProducerConsumer verifies one producer and one consumer see every value exactly once, in order
func TestConcurrentProducerConsumer(t *testing.T) {
	const total = 100000
	r := New[int](64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if r.TryPush(i) {
				i++
			}
		}
	}()

	next := 0
	for next < total {
		if v, ok := r.TryPop(); ok {
			require.Equal(t, next, v)
			next++
		}
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}

func BenchmarkPushPop(b *testing.B) {
	r := New[[64]byte](1024)
	var v [64]byte
	for i := 0; i < b.N; i++ {
		r.TryPush(v)
		r.TryPop()
	}
}
