package media

import (
	"image"
	"time"
)

// Packet is a reusable compressed packet. *astiav.Packet satisfies it.
type Packet interface {
	StreamIndex() int
	Unref()
}

// Demuxer is the decoding library boundary.
type Demuxer interface {
	// OpenVideo finds the video stream and opens a decoder that scales to width x height.
	OpenVideo(width, height int) (VideoDecoder, error)
	// OpenAudio finds the audio stream and opens a decoder that resamples to the sink format.
	OpenAudio(sampleRate, channels int) (AudioDecoder, error)

	NewPacket() Packet
	// ReadPacket fills pkt with the next packet. It returns io.EOF at the end of the input.
	ReadPacket(pkt Packet) error
	// MovePacket moves the content of src into dst, leaving src blank.
	MovePacket(dst, src Packet)
	FreePacket(pkt Packet)
}

// VideoDecoder turns packets of one stream into RGBA images at the surface geometry.
type VideoDecoder interface {
	Index() int
	Decode(pkt Packet, cb func(img *image.RGBA, pts time.Duration) error) error
	Flush(cb func(img *image.RGBA, pts time.Duration) error) error
}

// AudioDecoder turns packets of one stream into interleaved PCM in the sink format.
type AudioDecoder interface {
	Index() int
	Decode(pkt Packet, cb func(pcm []byte, pts time.Duration) error) error
	Flush(cb func(pcm []byte, pts time.Duration) error) error
}

// Surface is a display with fixed geometry.
// The stride returned by Lock may differ from the stride of decoded images.
type Surface interface {
	Size() (width, height int)
	Lock() (buf []byte, stride int, err error)
	UnlockAndPost() error
}

// AudioSink accepts interleaved PCM. Write blocks until the platform takes the buffer.
type AudioSink interface {
	SampleRate() int
	Channels() int
	Write(pcm []byte) (int, error)
}
