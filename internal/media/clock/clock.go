// Package clock contains the shared playback clock and the frame synchronizer.
package clock

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultDriftThreshold = 300 * time.Millisecond
	DefaultMinSleep       = 1 * time.Millisecond
	DefaultMaxSleep       = 500 * time.Millisecond
)

var (
	ErrClosed     = errors.New("clock: closed")
	ErrNotStarted = errors.New("clock: not started")
)

// Clock is the reference every stream presents against.
// startTime is set once by Start and afterwards only moved by drift correction.
type Clock struct {
	DriftThreshold time.Duration
	MinSleep       time.Duration
	MaxSleep       time.Duration

	// called with the amount startTime was moved forward.
	OnDrift func(time.Duration)
	// called with every wait request, after clamping.
	OnWait func(time.Duration)

	timeNow func() time.Time
	after   func(time.Duration) <-chan time.Time

	mutex     sync.Mutex
	startTime time.Time
	started   bool
	changed   chan struct{}
	closed    bool
	done      chan struct{}

	audioClock       atomic.Int64
	driftCorrections atomic.Uint64
}

// Initialize fills in defaults. It must be called before any other method.
func (c *Clock) Initialize() {
	if c.DriftThreshold <= 0 {
		c.DriftThreshold = DefaultDriftThreshold
	}
	if c.MinSleep <= 0 {
		c.MinSleep = DefaultMinSleep
	}
	if c.MaxSleep <= 0 {
		c.MaxSleep = DefaultMaxSleep
	}
	if c.timeNow == nil {
		c.timeNow = time.Now
	}
	if c.after == nil {
		c.after = time.After
	}

	c.changed = make(chan struct{})
	c.done = make(chan struct{})
}

// Start sets the zero point of playback. Calls after the first are no-ops.
func (c *Clock) Start() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.started {
		return
	}

	c.startTime = c.timeNow()
	c.started = true
	c.broadcast()
}

func (c *Clock) StartTime() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.startTime
}

// Elapsed returns the playback position according to the reference.
func (c *Clock) Elapsed() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.started {
		return 0
	}
	return c.timeNow().Sub(c.startTime)
}

// SetAudioClock records the presentation time of the latest audio unit and
// wakes every waiter so that it re-evaluates its sleep.
func (c *Clock) SetAudioClock(pts time.Duration) {
	c.audioClock.Store(int64(pts))

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.broadcast()
}

func (c *Clock) AudioClock() time.Duration {
	return time.Duration(c.audioClock.Load())
}

func (c *Clock) DriftCorrections() uint64 {
	return c.driftCorrections.Load()
}

// WaitForFrame blocks until target, a presentation time, is due.
//
// When the caller is more than DriftThreshold late, startTime is moved forward
// by the lag so that the reference catches up with the lagging stream, and the
// call returns without sleeping. Sleeps are capped at MaxSleep per iteration and
// are interrupted by any clock change.
func (c *Clock) WaitForFrame(target time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for {
		if c.closed {
			return ErrClosed
		}
		if !c.started {
			return ErrNotStarted
		}

		elapsed := c.timeNow().Sub(c.startTime)
		sleep := target - elapsed

		if sleep < -c.DriftThreshold {
			c.startTime = c.startTime.Add(-sleep)
			c.driftCorrections.Add(1)
			c.broadcast()

			if c.OnDrift != nil {
				c.OnDrift(-sleep)
			}
			return nil
		}

		if sleep <= c.MinSleep {
			return nil
		}

		if sleep > c.MaxSleep {
			sleep = c.MaxSleep
		}

		if c.OnWait != nil {
			c.OnWait(sleep)
		}

		changed := c.changed
		c.mutex.Unlock()

		select {
		case <-changed:
		case <-c.after(sleep):
		case <-c.done:
		}

		c.mutex.Lock()
	}
}

// Close wakes every waiter. WaitForFrame returns ErrClosed afterwards.
func (c *Clock) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.done)
}

func (c *Clock) broadcast() {
	close(c.changed)
	c.changed = make(chan struct{})
}
