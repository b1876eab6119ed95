package jobqueue

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThroughputSamplerRateAndETA(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newThroughputSampler[float64](4)

		_, ok := s.rate()
		require.False(t, ok)

		s.insert(10)
		_, ok = s.rate()
		require.False(t, ok)

		time.Sleep(time.Second)
		s.insert(20)
		rate, ok := s.rate()
		require.True(t, ok)
		require.InDelta(t, 10.0, rate, 0.01)

		eta, ok := s.etaTo(30)
		require.True(t, ok)
		require.InDelta(t, time.Second, eta, float64(10*time.Millisecond))

		eta, ok = s.etaTo(100)
		require.True(t, ok)
		require.InDelta(t, 8*time.Second, eta, float64(10*time.Millisecond))

		// a target already passed, in the opposite direction of the
		// trend, has no meaningful ETA
		_, ok = s.etaTo(5)
		require.False(t, ok)
	})
}

func TestThroughputSamplerEvictsOldestOnOverflow(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := newThroughputSampler[float64](3)
		s.insert(1)
		time.Sleep(time.Second)
		s.insert(2)
		time.Sleep(time.Second)
		// capacity 3, but a 3rd insert still evicts the oldest slot once
		// the ring has wrapped: "1" is gone, leaving "2" -> "3"
		s.insert(3)
		rate, ok := s.rate()
		require.True(t, ok)
		require.InDelta(t, 1.0, rate, 0.01)
	})
}
