package media

import (
	"fmt"
	"sync/atomic"

	"github.com/GoldenFealla/VideoPlayerGo/internal/media/packetqueue"
)

// StreamKind tells which sink a stream is presented to.
type StreamKind int

const (
	StreamVideo StreamKind = iota
	StreamAudio
)

func (k StreamKind) String() string {
	if k == StreamVideo {
		return "video"
	}
	return "audio"
}

type stream struct {
	kind  StreamKind
	index int
	queue *packetqueue.Queue[Packet]

	// written by the demuxer goroutine only.
	dead bool

	// written by the stream goroutine only, read after it returned.
	err error

	packets   atomic.Uint64
	presented atomic.Uint64
	bytes     atomic.Uint64
	failed    atomic.Bool
}

func newStream(kind StreamKind, index int, capacity int, alloc func() Packet) (*stream, error) {
	q, err := packetqueue.New(capacity, alloc)
	if err != nil {
		return nil, fmt.Errorf("%s queue: %w", kind, err)
	}

	return &stream{
		kind:  kind,
		index: index,
		queue: q,
	}, nil
}

// StreamStats are the counters of one stream.
type StreamStats struct {
	Index     int
	Packets   uint64
	Presented uint64
	Bytes     uint64
	Failed    bool
}

func (s *stream) stats() StreamStats {
	return StreamStats{
		Index:     s.index,
		Packets:   s.packets.Load(),
		Presented: s.presented.Load(),
		Bytes:     s.bytes.Load(),
		Failed:    s.failed.Load(),
	}
}
