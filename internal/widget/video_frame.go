// Package widget contains the fyne widgets of the player window.
package widget

import (
	"errors"
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

var ErrNotLocked = errors.New("video frame: not locked")

// VideoFrame is a double buffered RGBA surface. The decoder writes into the
// back buffer between Lock and UnlockAndPost. The fyne goroutine copies the
// front buffer into display, the only image the canvas ever reads.
type VideoFrame struct {
	width  int
	height int

	// post runs fn on the fyne goroutine.
	post func(fn func())

	mutex  sync.Mutex
	back   *image.RGBA
	front  *image.RGBA

	// owned by the fyne goroutine.
	display *image.RGBA
	image   *canvas.Image

	posted uint64
}

func NewVideoFrame(width, height int) *VideoFrame {
	v := &VideoFrame{
		width:  width,
		height: height,
		post:   fyne.Do,
		back:   image.NewRGBA(image.Rect(0, 0, width, height)),
		front:  image.NewRGBA(image.Rect(0, 0, width, height)),
	}

	v.display = image.NewRGBA(image.Rect(0, 0, width, height))
	v.image = canvas.NewImageFromImage(v.display)
	v.image.FillMode = canvas.ImageFillContain
	v.image.ScaleMode = canvas.ImageScaleFastest
	v.image.SetMinSize(fyne.NewSize(float32(width), float32(height)))

	return v
}

// CanvasObject is what the window lays out.
func (v *VideoFrame) CanvasObject() fyne.CanvasObject {
	return v.image
}

func (v *VideoFrame) Size() (int, int) {
	return v.width, v.height
}

// Lock hands out the back buffer and its stride until UnlockAndPost.
func (v *VideoFrame) Lock() ([]byte, int, error) {
	v.mutex.Lock()
	return v.back.Pix, v.back.Stride, nil
}

// UnlockAndPost swaps the buffers and schedules a repaint.
func (v *VideoFrame) UnlockAndPost() error {
	if v.mutex.TryLock() {
		v.mutex.Unlock()
		return ErrNotLocked
	}

	v.back, v.front = v.front, v.back
	v.posted++
	v.mutex.Unlock()

	v.post(v.show)
	return nil
}

// show runs on the fyne goroutine. Posts that pile up all show the latest frame.
func (v *VideoFrame) show() {
	v.mutex.Lock()
	copy(v.display.Pix, v.front.Pix)
	v.mutex.Unlock()

	v.image.Refresh()
}

// Frame returns the last posted frame.
func (v *VideoFrame) Frame() *image.RGBA {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.front
}

func (v *VideoFrame) Posted() uint64 {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.posted
}
