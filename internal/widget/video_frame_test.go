package widget

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/require"
)

func newTestFrame(w, h int) (*VideoFrame, *[]func()) {
	var posted []func()
	v := NewVideoFrame(w, h)
	v.post = func(fn func()) {
		posted = append(posted, fn)
	}
	return v, &posted
}

func TestVideoFrameSize(t *testing.T) {
	v, _ := newTestFrame(8, 6)

	w, h := v.Size()
	require.Equal(t, 8, w)
	require.Equal(t, 6, h)
}

func TestVideoFrameLockAndPost(t *testing.T) {
	v, posted := newTestFrame(2, 2)

	buf, stride, err := v.Lock()
	require.NoError(t, err)
	require.Equal(t, 8, stride)
	require.Len(t, buf, 16)

	buf[0] = 0xff
	require.NoError(t, v.UnlockAndPost())

	require.Len(t, *posted, 1)
	require.Equal(t, uint64(1), v.Posted())
	require.Equal(t, byte(0xff), v.Frame().Pix[0])

	// the next frame is written into the other buffer.
	buf, _, err = v.Lock()
	require.NoError(t, err)
	require.Equal(t, byte(0), buf[0])
	buf[0] = 0x10
	require.NoError(t, v.UnlockAndPost())

	require.Equal(t, byte(0x10), v.Frame().Pix[0])
	require.Len(t, *posted, 2)
}

func TestVideoFrameUnlockWithoutLock(t *testing.T) {
	v, posted := newTestFrame(2, 2)

	require.ErrorIs(t, v.UnlockAndPost(), ErrNotLocked)
	require.Empty(t, *posted)
}

func TestVideoFrameDisplayIsNotShared(t *testing.T) {
	test.NewTempApp(t)

	v, posted := newTestFrame(1, 1)

	for _, b := range []byte{1, 2} {
		buf, _, err := v.Lock()
		require.NoError(t, err)
		buf[0] = b
		require.NoError(t, v.UnlockAndPost())
	}

	// the first refresh runs late, after a second frame was posted.
	(*posted)[0]()
	require.Equal(t, byte(2), v.display.Pix[0])

	// writing the next frame leaves what the canvas shows untouched.
	buf, _, err := v.Lock()
	require.NoError(t, err)
	buf[0] = 3
	require.Equal(t, byte(2), v.display.Pix[0])
	require.NoError(t, v.UnlockAndPost())

	(*posted)[1]()
	require.Equal(t, byte(3), v.display.Pix[0])
	require.Same(t, v.display, v.image.Image)
}
