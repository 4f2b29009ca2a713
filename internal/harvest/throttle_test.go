package harvest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottleRampsToCeiling(t *testing.T) {
	rec := &pauseRecorder{}
	th := NewThrottle(rec.pause)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		th.Wait(ctx)
	}
	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}, rec.delays)
}

func TestThrottleInstancesAreIndependent(t *testing.T) {
	rec := &pauseRecorder{}
	ctx := context.Background()

	first := NewThrottle(rec.pause)
	first.Wait(ctx)
	first.Wait(ctx)

	second := NewThrottle(rec.pause)
	second.Wait(ctx)

	require.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		100 * time.Millisecond,
	}, rec.delays)
}
