package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedClock_StartsAtEpoch(t *testing.T) {
	clock := NewFixedClock()
	assert.Equal(t, int64(1700000000000), clock.Peek().UnixMilli())
}

func TestFixedClock_NowAdvancesByStep(t *testing.T) {
	clock := NewFixedClock()

	assert.Equal(t, int64(1700000000000), clock.Now().UnixMilli())
	assert.Equal(t, int64(1700000000001), clock.Now().UnixMilli())
	assert.Equal(t, int64(1700000000002), clock.Now().UnixMilli())
	assert.Equal(t, int64(1700000000003), clock.Peek().UnixMilli())
}

func TestFixedClock_ZeroStepFreezes(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFixedClockAt(start, 0)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestFixedClock_Reset(t *testing.T) {
	clock := NewFixedClock()
	clock.Now()
	clock.Now()

	clock.Reset()

	assert.Equal(t, int64(1700000000000), clock.Now().UnixMilli())
}

func TestFixedClock_ConcurrentNowIsUnique(t *testing.T) {
	clock := NewFixedClock()
	const n = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ms := clock.Now().UnixMilli()
			mu.Lock()
			seen[ms] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
}
