package media

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/GoldenFealla/VideoPlayerGo/internal/logger"
	"github.com/GoldenFealla/VideoPlayerGo/internal/media/clock"
	"github.com/GoldenFealla/VideoPlayerGo/internal/metrics"
)

var (
	ErrStreamOpen   = errors.New("player: opening stream failed")
	ErrInvalidState = errors.New("player: invalid state")
)

var (
	DEFAULT_QUEUE_CAPACITY       = 50
	DEFAULT_AUDIO_LATENCY_OFFSET = 100 * time.Millisecond
)

// State is the lifecycle state of a Player.
type State int

const (
	StateInit State = iota
	StateOpened
	StatePlaying
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateOpened:
		return "opened"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	}
	return "failed"
}

// Params are the collaborators and tunables of a Player.
type Params struct {
	Demuxer   Demuxer
	Surface   Surface
	AudioSink AudioSink

	QueueCapacity      int
	DriftThreshold     time.Duration
	MinSleep           time.Duration
	MaxSleep           time.Duration
	AudioLatencyOffset time.Duration

	Logger  logger.Writer
	Metrics *metrics.Metrics
}

// Player demuxes an input on one goroutine and decodes and presents every
// tracked stream on its own goroutine, against a shared clock.
type Player struct {
	id      uuid.UUID
	log     logger.Writer
	metrics *metrics.Metrics

	demuxer   Demuxer
	surface   Surface
	audioSink AudioSink

	queueCapacity      int
	audioLatencyOffset time.Duration

	clock *clock.Clock
	video *stream
	audio *stream

	videoDecoder VideoDecoder
	audioDecoder AudioDecoder

	mutex       sync.Mutex
	state       State
	group       errgroup.Group
	stopping    atomic.Bool
	dropped     atomic.Uint64
	readErr     error
	err         error
	done        chan struct{}
	releaseOnce sync.Once
}

// New allocates a Player in the init state.
func New(p Params) *Player {
	pl := &Player{
		id:                 uuid.New(),
		metrics:            p.Metrics,
		demuxer:            p.Demuxer,
		surface:            p.Surface,
		audioSink:          p.AudioSink,
		queueCapacity:      p.QueueCapacity,
		audioLatencyOffset: p.AudioLatencyOffset,
		done:               make(chan struct{}),
	}

	if pl.queueCapacity == 0 {
		pl.queueCapacity = DEFAULT_QUEUE_CAPACITY
	}
	if pl.audioLatencyOffset == 0 {
		pl.audioLatencyOffset = DEFAULT_AUDIO_LATENCY_OFFSET
	}
	if pl.metrics == nil {
		pl.metrics = metrics.New()
	}

	parent := p.Logger
	if parent == nil {
		parent = logger.Discard
	}
	pl.log = logger.WithPrefix(parent, fmt.Sprintf("[player %s] ", pl.id.String()[:8]))

	pl.clock = &clock.Clock{
		DriftThreshold: p.DriftThreshold,
		MinSleep:       p.MinSleep,
		MaxSleep:       p.MaxSleep,
		OnDrift:        pl.onDrift,
		OnWait:         pl.onWait,
	}
	pl.clock.Initialize()

	return pl
}

func (p *Player) ID() uuid.UUID {
	return p.id
}

func (p *Player) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

func (p *Player) Clock() *clock.Clock {
	return p.clock
}

// Open discovers both streams, opens their decoders and allocates their queues.
// Any failure is fatal and leaves the player failed.
func (p *Player) Open() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.state != StateInit {
		return fmt.Errorf("%w: open in state %s", ErrInvalidState, p.state)
	}

	if err := p.open(); err != nil {
		p.state = StateFailed
		p.err = err
		close(p.done)
		p.log.Log(logger.Error, "%v", err)
		return err
	}

	p.state = StateOpened
	p.log.Log(logger.Info, "opened, video stream #%d, audio stream #%d, queue capacity %d",
		p.video.index, p.audio.index, p.queueCapacity)
	return nil
}

func (p *Player) open() error {
	if p.demuxer == nil || p.surface == nil || p.audioSink == nil {
		return fmt.Errorf("%w: missing collaborator", ErrStreamOpen)
	}

	width, height := p.surface.Size()
	vd, err := p.demuxer.OpenVideo(width, height)
	if err != nil {
		return fmt.Errorf("%w: video: %w", ErrStreamOpen, err)
	}

	ad, err := p.demuxer.OpenAudio(p.audioSink.SampleRate(), p.audioSink.Channels())
	if err != nil {
		return fmt.Errorf("%w: audio: %w", ErrStreamOpen, err)
	}

	if vd.Index() == ad.Index() {
		return fmt.Errorf("%w: video and audio share stream #%d", ErrStreamOpen, vd.Index())
	}

	p.videoDecoder = vd
	p.audioDecoder = ad

	p.video, err = newStream(StreamVideo, vd.Index(), p.queueCapacity, p.demuxer.NewPacket)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStreamOpen, err)
	}

	p.audio, err = newStream(StreamAudio, ad.Index(), p.queueCapacity, p.demuxer.NewPacket)
	if err != nil {
		p.video.queue.Free(p.demuxer.FreePacket)
		p.video = nil
		return fmt.Errorf("%w: %w", ErrStreamOpen, err)
	}

	return nil
}

// Play starts the clock, the demuxer goroutine and one goroutine per stream.
func (p *Player) Play() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.state != StateOpened || p.stopping.Load() {
		return fmt.Errorf("%w: play in state %s", ErrInvalidState, p.state)
	}
	p.state = StatePlaying

	p.clock.Start()

	p.group.Go(p.readPackets)
	p.group.Go(streamTask{player: p, stream: p.video}.run)
	p.group.Go(streamTask{player: p, stream: p.audio}.run)

	go p.wait()

	p.log.Log(logger.Info, "playing")
	return nil
}

func (p *Player) wait() {
	p.group.Wait() //nolint:errcheck

	err := errors.Join(p.readErr, p.video.err, p.audio.err)

	p.mutex.Lock()
	p.err = err
	if err != nil {
		p.state = StateFailed
	} else {
		p.state = StateStopped
	}
	p.mutex.Unlock()

	if err != nil {
		p.log.Log(logger.Error, "playback failed: %v", err)
	} else {
		p.log.Log(logger.Info, "playback finished")
	}

	close(p.done)
}

// Wait blocks until every goroutine started by Play has returned.
// After a failed Open it returns the open error right away.
func (p *Player) Wait() error {
	p.mutex.Lock()
	state := p.state
	p.mutex.Unlock()

	if state == StateOpened || state == StateInit {
		return fmt.Errorf("%w: wait before play", ErrInvalidState)
	}

	<-p.done

	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.err
}

// Done is closed when playback has ended.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Stop unblocks every goroutine: queues and clock are closed and the loops
// return without error.
func (p *Player) Stop() {
	if p.stopping.Swap(true) {
		return
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.video != nil {
		p.video.queue.Close()
	}
	if p.audio != nil {
		p.audio.queue.Close()
	}
	p.clock.Close()
}

// Release stops playback, waits for it and frees every packet slot.
func (p *Player) Release() {
	p.releaseOnce.Do(func() {
		playing := p.State() == StatePlaying

		p.Stop()
		if playing {
			<-p.done
		}

		p.mutex.Lock()
		defer p.mutex.Unlock()

		if p.video != nil {
			p.video.queue.Free(p.demuxer.FreePacket)
		}
		if p.audio != nil {
			p.audio.queue.Free(p.demuxer.FreePacket)
		}

		st := p.stats()
		p.log.Log(logger.Info, "released: video %d frames, audio %d frames (%s), %d drift corrections, %d packets dropped",
			st.Video.Presented, st.Audio.Presented, bytefmt.ByteSize(st.Audio.Bytes),
			st.DriftCorrections, st.PacketsDropped)
	})
}

// Stats are counters collected during playback.
type Stats struct {
	Video            StreamStats
	Audio            StreamStats
	DriftCorrections uint64
	PacketsDropped   uint64
}

func (p *Player) Stats() Stats {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.stats()
}

func (p *Player) stats() Stats {
	st := Stats{
		DriftCorrections: p.clock.DriftCorrections(),
		PacketsDropped:   p.dropped.Load(),
	}
	if p.video != nil {
		st.Video = p.video.stats()
	}
	if p.audio != nil {
		st.Audio = p.audio.stats()
	}
	return st
}

func (p *Player) onDrift(d time.Duration) {
	p.metrics.DriftCorrections.Inc()
	p.metrics.DriftAmount.Observe(d.Seconds())
	p.log.Log(logger.Warn, "presentation was %v late, clock moved forward", d)
}

func (p *Player) onWait(d time.Duration) {
	p.metrics.SyncWait.Observe(d.Seconds())
}
