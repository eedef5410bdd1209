package audio

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	r io.Reader

	mutex   sync.Mutex
	buf     bytes.Buffer
	playing bool
	closed  bool
	done    chan struct{}
}

func (p *fakePlayer) Play() {
	p.mutex.Lock()
	p.playing = true
	p.mutex.Unlock()

	go func() {
		defer close(p.done)
		b := make([]byte, 4)
		for {
			n, err := p.r.Read(b)
			p.mutex.Lock()
			p.buf.Write(b[:n])
			p.mutex.Unlock()
			if err != nil {
				return
			}
		}
	}()
}

func (p *fakePlayer) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.closed = true
	return nil
}

func (p *fakePlayer) Bytes() []byte {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]byte(nil), p.buf.Bytes()...)
}

func newTestOutput() (*Output, *fakePlayer) {
	var fp *fakePlayer
	o := newOutput(44100, 2, func(r io.Reader) player {
		fp = &fakePlayer{r: r, done: make(chan struct{})}
		return fp
	})
	return o, fp
}

func TestOutputWrite(t *testing.T) {
	o, fp := newTestOutput()

	require.Equal(t, 44100, o.SampleRate())
	require.Equal(t, 2, o.Channels())
	require.True(t, fp.playing)

	n, err := o.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.Equal(t, 10, n)

	require.NoError(t, o.Close())
	<-fp.done

	require.Equal(t, []byte("0123456789"), fp.Bytes())
	require.True(t, fp.closed)
}

func TestOutputCloseUnblocksWrite(t *testing.T) {
	var fp *fakePlayer
	// a player that never reads.
	o := newOutput(48000, 1, func(r io.Reader) player {
		fp = &fakePlayer{r: r, done: make(chan struct{})}
		return &stalledPlayer{fp}
	})

	done := make(chan error)
	go func() {
		_, err := o.Write([]byte("abcd"))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, o.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("write was not unblocked")
	}

	_, err := o.Write([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, o.Close())
}

type stalledPlayer struct {
	*fakePlayer
}

func (p *stalledPlayer) Play() {}
