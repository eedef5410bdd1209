package decoder

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/GoldenFealla/VideoPlayerGo/internal/media"
)

type VideoStream struct {
	st *astiav.Stream
	cc *astiav.CodecContext

	df   *astiav.Frame
	sf   *astiav.Frame
	sws  *astiav.SoftwareScaleContext
	img  *image.RGBA
	srcW int
	srcH int
	srcF astiav.PixelFormat

	width  int
	height int

	closer *astikit.Closer
}

func newVideoStream(width, height int) *VideoStream {
	vst := &VideoStream{
		width:  width,
		height: height,
		closer: astikit.NewCloser(),
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}

	vst.df = astiav.AllocFrame()
	vst.closer.Add(vst.df.Free)

	vst.sf = astiav.AllocFrame()
	vst.closer.Add(vst.sf.Free)

	vst.closer.Add(vst.freeScaler)

	return vst
}

func (vst *VideoStream) Close() {
	vst.closer.Close()
}

func (vst *VideoStream) Index() int {
	return vst.st.Index()
}

func (vst *VideoStream) LoadInputContext(i *astiav.FormatContext) error {
	st, cc, err := openCodec(i, astiav.MediaTypeVideo, vst.closer)
	if err != nil {
		return fmt.Errorf("finding video codec: %w", err)
	}

	if st == nil {
		return ErrNoVideo
	}

	vst.st = st
	vst.cc = cc
	return nil
}

func (vst *VideoStream) Decode(pkt media.Packet, cb func(*image.RGBA, time.Duration) error) error {
	if err := vst.cc.SendPacket(pkt.(*astiav.Packet)); err != nil {
		return fmt.Errorf("video decode: sending packet to video decoder failed: %w", err)
	}

	return vst.receive(cb)
}

// Flush drains the frames the decoder still holds.
func (vst *VideoStream) Flush(cb func(*image.RGBA, time.Duration) error) error {
	if err := vst.cc.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("video decode: flushing video decoder failed: %w", err)
	}

	return vst.receive(cb)
}

func (vst *VideoStream) receive(cb func(*image.RGBA, time.Duration) error) error {
	for {
		stop, err := vst.decode(cb)
		if err != nil {
			return err
		}

		if stop {
			return nil
		}
	}
}

func (vst *VideoStream) decode(cb func(*image.RGBA, time.Duration) error) (bool, error) {
	if err := vst.cc.ReceiveFrame(vst.df); err != nil {
		if errors.Is(err, astiav.ErrEof) || errors.Is(err, astiav.ErrEagain) {
			return true, nil
		}
		return true, fmt.Errorf("video decoding: receiving frame failed: %w", err)
	}

	defer vst.df.Unref()

	if err := vst.scale(); err != nil {
		return true, err
	}

	return false, cb(vst.img, toDuration(vst.df.Pts(), vst.st.TimeBase()))
}

// scale converts the decoded frame to RGBA at the surface geometry.
func (vst *VideoStream) scale() error {
	if vst.sws == nil || vst.df.Width() != vst.srcW || vst.df.Height() != vst.srcH || vst.df.PixelFormat() != vst.srcF {
		if err := vst.updateScaler(); err != nil {
			return err
		}
	}

	if err := vst.sws.ScaleFrame(vst.df, vst.sf); err != nil {
		return fmt.Errorf("video scaling: scaling frame failed: %w", err)
	}

	if err := vst.sf.Data().ToImage(vst.img); err != nil {
		return fmt.Errorf("video scaling: converting to image failed: %w", err)
	}

	return nil
}

func (vst *VideoStream) freeScaler() {
	if vst.sws != nil {
		vst.sws.Free()
		vst.sws = nil
	}
}

func (vst *VideoStream) updateScaler() error {
	vst.freeScaler()

	vst.srcW = vst.df.Width()
	vst.srcH = vst.df.Height()
	vst.srcF = vst.df.PixelFormat()

	sws, err := astiav.CreateSoftwareScaleContext(
		vst.srcW, vst.srcH, vst.srcF,
		vst.width, vst.height, astiav.PixelFormatRgba,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return fmt.Errorf("video scaling: creating scale context failed: %w", err)
	}
	vst.sws = sws

	vst.sf.Unref()
	vst.sf.SetWidth(vst.width)
	vst.sf.SetHeight(vst.height)
	vst.sf.SetPixelFormat(astiav.PixelFormatRgba)
	if err := vst.sf.AllocBuffer(1); err != nil {
		return fmt.Errorf("video scaling: allocating frame buffer failed: %w", err)
	}

	return nil
}
