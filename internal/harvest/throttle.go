package harvest

import (
	"context"
	"time"
)

// PauseFunc abstracts sleeping so tests run without real delays.
type PauseFunc func(ctx context.Context, delay time.Duration)

// SleepPause waits for the delay or until the context finishes.
func SleepPause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Throttle spaces out successive drains within one fan-out loop. The
// delay ramps from 100ms up to a 500ms ceiling so a burst of concurrent
// completions does not translate into a burst of follow-up requests.
// Each fan-out loop gets its own Throttle; the counter is not shared
// across loops.
type Throttle struct {
	step  int
	pause PauseFunc
}

// NewThrottle builds a Throttle. A nil pause sleeps for real.
func NewThrottle(pause PauseFunc) *Throttle {
	if pause == nil {
		pause = SleepPause
	}
	return &Throttle{step: 1, pause: pause}
}

// Wait sleeps the current delay, then lengthens the next one up to the cap.
func (t *Throttle) Wait(ctx context.Context) {
	t.pause(ctx, time.Duration(t.step)*100*time.Millisecond)
	if t.step < 5 {
		t.step++
	}
}
