// Package audio plays interleaved float32 PCM on the system device.
package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
)

var ErrClosed = errors.New("audio output: closed")

type player interface {
	Play()
	Close() error
}

// Output is an audio sink backed by an oto player. Write blocks until the
// device has pulled the samples, which keeps the audio stream paced.
type Output struct {
	sampleRate int
	channels   int

	pr     *io.PipeReader
	pw     *io.PipeWriter
	player player

	closeOnce sync.Once
}

func New(sampleRate, channels int) (*Output, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio output: creating context failed: %w", err)
	}
	<-ready

	return newOutput(sampleRate, channels, func(r io.Reader) player {
		return ctx.NewPlayer(r)
	}), nil
}

func newOutput(sampleRate, channels int, newPlayer func(io.Reader) player) *Output {
	o := &Output{
		sampleRate: sampleRate,
		channels:   channels,
	}
	o.pr, o.pw = io.Pipe()
	o.player = newPlayer(o.pr)
	o.player.Play()
	return o
}

func (o *Output) SampleRate() int {
	return o.sampleRate
}

func (o *Output) Channels() int {
	return o.channels
}

func (o *Output) Write(pcm []byte) (int, error) {
	n, err := o.pw.Write(pcm)
	if errors.Is(err, io.ErrClosedPipe) {
		return n, ErrClosed
	}
	return n, err
}

// Close unblocks a pending Write and stops the device player.
func (o *Output) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.pw.CloseWithError(ErrClosed) //nolint:errcheck
		o.pr.Close()                   //nolint:errcheck
		err = o.player.Close()
	})
	return err
}
