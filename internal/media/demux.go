package media

import (
	"errors"
	"fmt"
	"io"

	"github.com/GoldenFealla/VideoPlayerGo/internal/logger"
	"github.com/GoldenFealla/VideoPlayerGo/internal/media/packetqueue"
)

// readPackets routes packets into the stream queues until the input ends.
// A full queue blocks it, which throttles reading to the slowest stream.
func (p *Player) readPackets() error {
	pkt := p.demuxer.NewPacket()
	defer p.demuxer.FreePacket(pkt)

	for {
		stop, err := p.readPacket(pkt)
		if err != nil {
			p.readErr = err
			p.endStreams()
			return err
		}

		if stop {
			break
		}
	}

	p.endStreams()
	return nil
}

func (p *Player) readPacket(pkt Packet) (bool, error) {
	if err := p.demuxer.ReadPacket(pkt); err != nil {
		if errors.Is(err, io.EOF) {
			p.log.Log(logger.Debug, "end of input")
			return true, nil
		}
		if p.stopping.Load() {
			return true, nil
		}
		return true, fmt.Errorf("demux: reading packet failed: %w", err)
	}

	defer pkt.Unref()

	var s *stream
	switch pkt.StreamIndex() {
	case p.video.index:
		s = p.video
	case p.audio.index:
		s = p.audio
	default:
		p.drop("untracked")
		return false, nil
	}

	if s.dead {
		p.drop("dead_stream")
		return false, nil
	}

	err := s.queue.Push(func(slot Packet) {
		p.demuxer.MovePacket(slot, pkt)
	})
	if err != nil {
		if p.stopping.Load() {
			return true, nil
		}

		// the stream goroutine gave up, the other stream keeps playing.
		s.dead = true
		p.drop("dead_stream")
		p.log.Log(logger.Warn, "%s stream is gone, dropping its packets", s.kind)

		return p.video.dead && p.audio.dead, nil
	}

	s.packets.Add(1)
	p.metrics.PacketsRead.WithLabelValues(s.kind.String()).Inc()
	p.metrics.QueueDepth.WithLabelValues(s.kind.String()).Set(float64(s.queue.Len()))

	return false, nil
}

func (p *Player) drop(reason string) {
	p.dropped.Add(1)
	p.metrics.PacketsDropped.WithLabelValues(reason).Inc()
}

// endStreams appends the end of stream sentinel to every live queue so that
// stream goroutines drain and return instead of waiting forever.
func (p *Player) endStreams() {
	for _, s := range []*stream{p.video, p.audio} {
		if s.dead {
			continue
		}

		err := s.queue.PushEndOfStream()
		if err != nil && !errors.Is(err, packetqueue.ErrClosed) {
			p.log.Log(logger.Warn, "%s queue: pushing end of stream failed: %v", s.kind, err)
		}
	}
}
