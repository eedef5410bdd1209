package decoder

import (
	"errors"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/GoldenFealla/VideoPlayerGo/internal/media"
)

var (
	FORMAT_TYPE = astiav.SampleFormatFlt
	NB_SAMPLES  = 1024
)

type AudioStream struct {
	st *astiav.Stream
	cc *astiav.CodecContext

	resampler *astiav.SoftwareResampleContext
	fifo      *astiav.AudioFifo

	decodedFrame   *astiav.Frame
	resampledFrame *astiav.Frame
	finalFrame     *astiav.Frame

	sampleRate int

	// pts of the next chunk read from the fifo.
	basePts  time.Duration
	hasPts   bool
	consumed int64

	closer *astikit.Closer
}

func channelLayout(channels int) (astiav.ChannelLayout, error) {
	switch channels {
	case 1:
		return astiav.ChannelLayoutMono, nil
	case 2:
		return astiav.ChannelLayoutStereo, nil
	}
	return astiav.ChannelLayout{}, fmt.Errorf("create audio stream: unsupported channel count %d", channels)
}

func newAudioStream(sampleRate, channels int) (*AudioStream, error) {
	layout, err := channelLayout(channels)
	if err != nil {
		return nil, err
	}

	ast := &AudioStream{
		sampleRate: sampleRate,
		closer:     astikit.NewCloser(),
	}

	ast.decodedFrame = astiav.AllocFrame()
	ast.closer.Add(ast.decodedFrame.Free)

	ast.resampledFrame = astiav.AllocFrame()
	ast.closer.Add(ast.resampledFrame.Free)
	ast.resampledFrame.SetChannelLayout(layout)
	ast.resampledFrame.SetSampleFormat(FORMAT_TYPE)
	ast.resampledFrame.SetSampleRate(sampleRate)
	ast.resampledFrame.SetNbSamples(NB_SAMPLES)
	if err := ast.resampledFrame.AllocBuffer(0); err != nil {
		ast.Close()
		return nil, fmt.Errorf("create audio stream: allocating resampled frame buffer failed: %w", err)
	}

	ast.finalFrame = astiav.AllocFrame()
	ast.closer.Add(ast.finalFrame.Free)
	ast.finalFrame.SetChannelLayout(layout)
	ast.finalFrame.SetSampleFormat(FORMAT_TYPE)
	ast.finalFrame.SetSampleRate(sampleRate)
	ast.finalFrame.SetNbSamples(NB_SAMPLES)
	if err := ast.finalFrame.AllocBuffer(0); err != nil {
		ast.Close()
		return nil, fmt.Errorf("create audio stream: allocating final frame buffer failed: %w", err)
	}

	ast.fifo = astiav.AllocAudioFifo(FORMAT_TYPE, layout.Channels(), NB_SAMPLES)
	ast.closer.Add(ast.fifo.Free)

	ast.resampler = astiav.AllocSoftwareResampleContext()
	ast.closer.Add(ast.resampler.Free)

	return ast, nil
}

func (ast *AudioStream) Close() {
	ast.closer.Close()
}

func (ast *AudioStream) Index() int {
	return ast.st.Index()
}

func (ast *AudioStream) LoadInputContext(i *astiav.FormatContext) error {
	st, cc, err := openCodec(i, astiav.MediaTypeAudio, ast.closer)
	if err != nil {
		return fmt.Errorf("finding audio codec: %w", err)
	}

	if st == nil {
		return ErrNoAudio
	}

	ast.st = st
	ast.cc = cc
	return nil
}

func (ast *AudioStream) Decode(pkt media.Packet, cb func([]byte, time.Duration) error) error {
	if err := ast.cc.SendPacket(pkt.(*astiav.Packet)); err != nil {
		return fmt.Errorf("audio decode: sending packet to audio decoder failed: %w", err)
	}

	return ast.receive(cb)
}

// Flush drains the decoder, then the resampler, then whatever the fifo holds.
func (ast *AudioStream) Flush(cb func([]byte, time.Duration) error) error {
	if err := ast.cc.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("audio decode: flushing audio decoder failed: %w", err)
	}

	if err := ast.receive(cb); err != nil {
		return err
	}

	if err := ast.flushResampler(cb); err != nil {
		return fmt.Errorf("audio decode: flushing software resample context failed: %w", err)
	}

	return ast.processFifo(true, cb)
}

func (ast *AudioStream) receive(cb func([]byte, time.Duration) error) error {
	for {
		stop, err := ast.decode(cb)
		if err != nil {
			return err
		}

		if stop {
			return nil
		}
	}
}

func (ast *AudioStream) decode(cb func([]byte, time.Duration) error) (bool, error) {
	if err := ast.cc.ReceiveFrame(ast.decodedFrame); err != nil {
		if errors.Is(err, astiav.ErrEof) || errors.Is(err, astiav.ErrEagain) {
			return true, nil
		}
		return true, fmt.Errorf("audio decode: receiving frame failed: %w", err)
	}

	defer ast.decodedFrame.Unref()

	if !ast.hasPts && ast.decodedFrame.Pts() != astiav.NoPtsValue {
		ast.basePts = toDuration(ast.decodedFrame.Pts(), ast.st.TimeBase())
		ast.hasPts = true
	}

	if err := ast.resampler.ConvertFrame(ast.decodedFrame, ast.resampledFrame); err != nil {
		return true, fmt.Errorf("audio decode: resampling decoded frame failed: %w", err)
	}

	if ast.resampledFrame.NbSamples() > 0 {
		if err := ast.writeFifo(); err != nil {
			return true, err
		}
	}

	return false, ast.processFifo(false, cb)
}

func (ast *AudioStream) flushResampler(cb func([]byte, time.Duration) error) error {
	for ast.resampler.Delay(int64(ast.sampleRate)) > 0 {
		if err := ast.resampler.ConvertFrame(nil, ast.resampledFrame); err != nil {
			return err
		}

		if ast.resampledFrame.NbSamples() == 0 {
			return nil
		}

		if err := ast.writeFifo(); err != nil {
			return err
		}

		if err := ast.processFifo(false, cb); err != nil {
			return err
		}
	}
	return nil
}

func (ast *AudioStream) writeFifo() error {
	if _, err := ast.fifo.Write(ast.resampledFrame); err != nil {
		return fmt.Errorf("audio fifo: writing failed: %w", err)
	}
	return nil
}

// processFifo hands out fixed size chunks. A final flush also hands out the
// last partial chunk.
func (ast *AudioStream) processFifo(isFlush bool, cb func([]byte, time.Duration) error) error {
	for (isFlush && ast.fifo.Size() > 0) || ast.fifo.Size() >= NB_SAMPLES {
		ast.finalFrame.SetNbSamples(NB_SAMPLES)

		n, err := ast.fifo.Read(ast.finalFrame)
		if err != nil {
			return fmt.Errorf("audio fifo: reading failed: %w", err)
		}
		ast.finalFrame.SetNbSamples(n)

		b, err := ast.finalFrame.Data().Bytes(1)
		if err != nil {
			return fmt.Errorf("audio fifo: getting data failed: %w", err)
		}

		pts := ast.basePts + time.Duration(ast.consumed)*time.Second/time.Duration(ast.sampleRate)
		ast.consumed += int64(n)

		if err := cb(b, pts); err != nil {
			return err
		}
	}
	return nil
}
