package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTime struct {
	mutex  sync.Mutex
	now    time.Time
	waits  []time.Duration
	frozen bool
}

func (f *fakeTime) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *fakeTime) Set(t time.Time) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = t
}

func (f *fakeTime) Waits() []time.Duration {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]time.Duration(nil), f.waits...)
}

// After advances the fake time by d, unless frozen, in which case it never fires.
func (f *fakeTime) After(d time.Duration) <-chan time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.waits = append(f.waits, d)

	ch := make(chan time.Time, 1)
	if !f.frozen {
		f.now = f.now.Add(d)
		ch <- f.now
	}
	return ch
}

var base = time.Date(2003, 11, 4, 23, 15, 8, 0, time.UTC)

func newFakeClock(ft *fakeTime) *Clock {
	c := &Clock{
		timeNow: ft.Now,
		after:   ft.After,
	}
	c.Initialize()
	return c
}

func TestInitializeDefaults(t *testing.T) {
	c := &Clock{}
	c.Initialize()

	require.Equal(t, 300*time.Millisecond, c.DriftThreshold)
	require.Equal(t, time.Millisecond, c.MinSleep)
	require.Equal(t, 500*time.Millisecond, c.MaxSleep)
}

func TestWaitBeforeStart(t *testing.T) {
	c := newFakeClock(&fakeTime{now: base})
	require.ErrorIs(t, c.WaitForFrame(time.Second), ErrNotStarted)
}

func TestStartOnce(t *testing.T) {
	ft := &fakeTime{now: base}
	c := newFakeClock(ft)

	c.Start()
	ft.Set(base.Add(time.Second))
	c.Start()

	require.Equal(t, base, c.StartTime())
	require.Equal(t, time.Second, c.Elapsed())
}

func TestDriftCorrection(t *testing.T) {
	ft := &fakeTime{now: base}
	c := newFakeClock(ft)

	var corrected time.Duration
	c.OnDrift = func(d time.Duration) { corrected = d }

	c.Start()
	ft.Set(base.Add(500 * time.Millisecond))

	err := c.WaitForFrame(100 * time.Millisecond)
	require.NoError(t, err)

	require.Equal(t, base.Add(400*time.Millisecond), c.StartTime())
	require.Equal(t, 400*time.Millisecond, corrected)
	require.Equal(t, uint64(1), c.DriftCorrections())
	require.Empty(t, ft.Waits())
}

func TestLagAtThresholdIsNotCorrected(t *testing.T) {
	ft := &fakeTime{now: base}
	c := newFakeClock(ft)

	c.Start()
	ft.Set(base.Add(400 * time.Millisecond))

	require.NoError(t, c.WaitForFrame(100*time.Millisecond))
	require.Equal(t, base, c.StartTime())
	require.Equal(t, uint64(0), c.DriftCorrections())
	require.Empty(t, ft.Waits())
}

func TestNoWaitWhenDue(t *testing.T) {
	ft := &fakeTime{now: base}
	c := newFakeClock(ft)
	c.Start()

	for _, target := range []time.Duration{-100 * time.Millisecond, 0, time.Millisecond} {
		require.NoError(t, c.WaitForFrame(target))
	}
	require.Empty(t, ft.Waits())
}

func TestWaitIsClamped(t *testing.T) {
	for _, ca := range []struct {
		name   string
		target time.Duration
		waits  []time.Duration
	}{
		{
			"short",
			200 * time.Millisecond,
			[]time.Duration{200 * time.Millisecond},
		},
		{
			"long",
			1200 * time.Millisecond,
			[]time.Duration{500 * time.Millisecond, 500 * time.Millisecond, 200 * time.Millisecond},
		},
		{
			"exact",
			2 * time.Second,
			[]time.Duration{
				500 * time.Millisecond, 500 * time.Millisecond,
				500 * time.Millisecond, 500 * time.Millisecond,
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			ft := &fakeTime{now: base}
			c := newFakeClock(ft)

			var observed []time.Duration
			c.OnWait = func(d time.Duration) { observed = append(observed, d) }

			c.Start()
			require.NoError(t, c.WaitForFrame(ca.target))

			require.Equal(t, ca.waits, ft.Waits())
			require.Equal(t, ca.waits, observed)
			for _, w := range ft.Waits() {
				require.LessOrEqual(t, w, 500*time.Millisecond)
			}
		})
	}
}

func TestWaitRealTime(t *testing.T) {
	c := &Clock{}
	c.Initialize()
	c.Start()

	t0 := time.Now()
	require.NoError(t, c.WaitForFrame(200*time.Millisecond))
	elapsed := time.Since(t0)

	require.InDelta(t, float64(200*time.Millisecond), float64(elapsed), float64(50*time.Millisecond))
}

func TestAudioClockWakesWaiters(t *testing.T) {
	ft := &fakeTime{now: base, frozen: true}
	c := newFakeClock(ft)
	c.Start()

	done := make(chan error)
	go func() {
		done <- c.WaitForFrame(time.Second)
	}()

	require.Eventually(t, func() bool {
		return len(ft.Waits()) == 1
	}, time.Second, 5*time.Millisecond)

	ft.Set(base.Add(time.Second))
	c.SetAudioClock(960 * time.Millisecond)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by the audio clock update")
	}

	require.Equal(t, 960*time.Millisecond, c.AudioClock())
}

func TestDriftCorrectionWakesWaiters(t *testing.T) {
	ft := &fakeTime{now: base, frozen: true}
	c := newFakeClock(ft)
	c.Start()

	done := make(chan error)
	go func() {
		done <- c.WaitForFrame(800 * time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		return len(ft.Waits()) == 1
	}, time.Second, 5*time.Millisecond)

	// another stream is 1s late: the reference moves forward by 1s,
	// which pushes the first waiter's target further away.
	ft.Set(base.Add(1500 * time.Millisecond))
	require.NoError(t, c.WaitForFrame(500*time.Millisecond))
	require.Equal(t, base.Add(time.Second), c.StartTime())

	require.Eventually(t, func() bool {
		return len(ft.Waits()) == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 300*time.Millisecond, ft.Waits()[1])

	c.Close()
	require.ErrorIs(t, <-done, ErrClosed)
}

func TestCloseUnblocks(t *testing.T) {
	ft := &fakeTime{now: base, frozen: true}
	c := newFakeClock(ft)
	c.Start()

	done := make(chan error)
	go func() {
		done <- c.WaitForFrame(time.Second)
	}()

	require.Eventually(t, func() bool {
		return len(ft.Waits()) == 1
	}, time.Second, 5*time.Millisecond)

	c.Close()
	c.Close()
	require.ErrorIs(t, <-done, ErrClosed)
	require.ErrorIs(t, c.WaitForFrame(0), ErrClosed)
}
