// Package decoder binds the player to FFmpeg.
package decoder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/GoldenFealla/VideoPlayerGo/internal/media"
)

// Input demuxes a container and owns every decoder opened on it.
type Input struct {
	closer *astikit.Closer

	iformat *astiav.FormatContext
}

func NewInput() *Input {
	return &Input{
		closer: astikit.NewCloser(),
	}
}

func (in *Input) Open(url string) error {
	if in.iformat = astiav.AllocFormatContext(); in.iformat == nil {
		return errors.New("format context: allocating failed")
	}
	in.closer.Add(in.iformat.Free)

	if err := in.iformat.OpenInput(url, nil, nil); err != nil {
		return fmt.Errorf("format context: opening input failed: %w", err)
	}
	in.closer.Add(in.iformat.CloseInput)

	if err := in.iformat.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("format context: finding stream info failed: %w", err)
	}

	return nil
}

// Duration returns the container duration, zero when unknown.
func (in *Input) Duration() time.Duration {
	if in.iformat == nil || in.iformat.Duration() <= 0 {
		return 0
	}
	return time.Duration(in.iformat.Duration()) * time.Microsecond
}

func (in *Input) OpenVideo(width, height int) (media.VideoDecoder, error) {
	vst := newVideoStream(width, height)
	in.closer.Add(vst.Close)

	if err := vst.LoadInputContext(in.iformat); err != nil {
		return nil, err
	}
	return vst, nil
}

func (in *Input) OpenAudio(sampleRate, channels int) (media.AudioDecoder, error) {
	ast, err := newAudioStream(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	in.closer.Add(ast.Close)

	if err := ast.LoadInputContext(in.iformat); err != nil {
		return nil, err
	}
	return ast, nil
}

func (in *Input) NewPacket() media.Packet {
	return astiav.AllocPacket()
}

func (in *Input) ReadPacket(pkt media.Packet) error {
	if err := in.iformat.ReadFrame(pkt.(*astiav.Packet)); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return io.EOF
		}
		return fmt.Errorf("format context: reading frame failed: %w", err)
	}
	return nil
}

func (in *Input) MovePacket(dst, src media.Packet) {
	dst.(*astiav.Packet).MoveRef(src.(*astiav.Packet))
}

func (in *Input) FreePacket(pkt media.Packet) {
	pkt.(*astiav.Packet).Free()
}

func (in *Input) Close() {
	in.closer.Close()
}

func openCodec(i *astiav.FormatContext, t astiav.MediaType, closer *astikit.Closer) (*astiav.Stream, *astiav.CodecContext, error) {
	if i == nil {
		return nil, nil, ErrInputContextNil
	}

	for _, is := range i.Streams() {
		if is.CodecParameters().MediaType() != t {
			continue
		}

		codec := astiav.FindDecoder(is.CodecParameters().CodecID())
		if codec == nil {
			return nil, nil, errors.New("finding codec: codec is nil")
		}

		cc := astiav.AllocCodecContext(codec)
		if cc == nil {
			return nil, nil, errors.New("finding codec: codec context is nil")
		}
		closer.Add(cc.Free)

		if err := is.CodecParameters().ToCodecContext(cc); err != nil {
			return nil, nil, fmt.Errorf("finding codec: updating codec context failed: %w", err)
		}

		if err := cc.Open(codec, nil); err != nil {
			return nil, nil, fmt.Errorf("finding codec: opening codec context failed: %w", err)
		}

		return is, cc, nil
	}

	return nil, nil, nil
}

func toDuration(pts int64, tb astiav.Rational) time.Duration {
	if pts == astiav.NoPtsValue || tb.Den() == 0 {
		return 0
	}
	return time.Duration(float64(pts) * float64(tb.Num()) / float64(tb.Den()) * float64(time.Second))
}
