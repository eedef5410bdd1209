package media

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/GoldenFealla/VideoPlayerGo/internal/logger"
	"github.com/GoldenFealla/VideoPlayerGo/internal/media/clock"
	"github.com/GoldenFealla/VideoPlayerGo/internal/media/packetqueue"
)

// streamTask is handed to a stream goroutine when it is spawned.
type streamTask struct {
	player *Player
	stream *stream
}

func (t streamTask) run() error {
	err := t.runInner()
	if err != nil {
		p, s := t.player, t.stream

		// the demuxer must stop waiting on this queue.
		s.queue.Close()
		s.failed.Store(true)
		s.err = err

		p.metrics.DecodeErrors.WithLabelValues(s.kind.String()).Inc()
		p.log.Log(logger.Error, "%v", err)
	}

	// failures stay local to the stream, Wait reports them.
	return nil
}

func (t streamTask) runInner() error {
	for {
		pkt, err := t.stream.queue.Pop()
		if err != nil {
			if errors.Is(err, packetqueue.ErrEndOfStream) {
				return t.flush()
			}
			return nil
		}

		err = t.decode(pkt)
		pkt.Unref()

		if err != nil {
			// sinks closed during a stop are not failures.
			if errors.Is(err, clock.ErrClosed) || t.player.stopping.Load() {
				return nil
			}
			return fmt.Errorf("%s stream: %w", t.stream.kind, err)
		}

		t.player.metrics.QueueDepth.WithLabelValues(t.stream.kind.String()).Set(float64(t.stream.queue.Len()))
	}
}

func (t streamTask) decode(pkt Packet) error {
	p := t.player

	if t.stream.kind == StreamVideo {
		return p.videoDecoder.Decode(pkt, t.presentVideo)
	}
	return p.audioDecoder.Decode(pkt, t.presentAudio)
}

func (t streamTask) flush() error {
	p := t.player

	var err error
	if t.stream.kind == StreamVideo {
		err = p.videoDecoder.Flush(t.presentVideo)
	} else {
		err = p.audioDecoder.Flush(t.presentAudio)
	}

	if err != nil && !errors.Is(err, clock.ErrClosed) {
		return fmt.Errorf("%s stream: flushing decoder failed: %w", t.stream.kind, err)
	}

	p.log.Log(logger.Debug, "%s stream ended", t.stream.kind)
	return nil
}

func (t streamTask) presentVideo(img *image.RGBA, pts time.Duration) error {
	p := t.player

	if err := p.clock.WaitForFrame(pts); err != nil {
		return err
	}

	buf, stride, err := p.surface.Lock()
	if err != nil {
		return fmt.Errorf("surface: locking failed: %w", err)
	}

	blit(buf, stride, img)

	if err := p.surface.UnlockAndPost(); err != nil {
		return fmt.Errorf("surface: posting failed: %w", err)
	}

	t.stream.presented.Add(1)
	p.metrics.FramesPresented.WithLabelValues("video").Inc()

	p.log.Log(logger.Debug, "video: %10v audio: %10v a/v: %+2.3f",
		pts, p.clock.AudioClock(), (p.clock.AudioClock() - pts).Seconds())

	return nil
}

func (t streamTask) presentAudio(pcm []byte, pts time.Duration) error {
	p := t.player

	p.clock.SetAudioClock(pts)

	if err := p.clock.WaitForFrame(pts - p.audioLatencyOffset); err != nil {
		return err
	}

	n, err := p.audioSink.Write(pcm)
	if err != nil {
		return fmt.Errorf("audio sink: writing failed: %w", err)
	}

	t.stream.presented.Add(1)
	t.stream.bytes.Add(uint64(n))
	p.metrics.FramesPresented.WithLabelValues("audio").Inc()
	p.metrics.AudioBytes.Add(float64(n))

	return nil
}

// blit copies img row by row into a buffer with its own stride.
// Rows and columns that do not fit are cut.
func blit(dst []byte, dstStride int, img *image.RGBA) {
	if dstStride <= 0 {
		return
	}

	b := img.Bounds()
	rowBytes := min(b.Dx()*4, dstStride)
	rows := min(b.Dy(), len(dst)/dstStride)

	for y := range rows {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst[y*dstStride:y*dstStride+rowBytes], img.Pix[src:src+rowBytes])
	}
}
