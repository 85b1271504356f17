package mediacache

import (
	"image"
	"time"
)

// Texture is an opaque renderer-owned handle for an uploaded pixel buffer.
// Its lifetime and release belong to the renderer.
type Texture interface {
	ID() string
	Size() image.Point
}

// Uploader hands decoded pixel buffers to the renderer.
type Uploader interface {
	Upload(name string, img ColorImage) (Texture, error)
}

// TexturedImage is the resolved value of a load unit: either a
// StaticImage or an *Animation.
type TexturedImage interface {
	texturedImage()
}

// StaticImage is a single uploaded still.
type StaticImage struct {
	Texture Texture
}

func (StaticImage) texturedImage() {}

// TextureFrame is one uploaded animation frame.
type TextureFrame struct {
	Delay   time.Duration
	Texture Texture
}

// Animation holds the first uploaded frame and the frames streamed after
// it. The decode pipeline is the only writer of the receiver; the owner of
// the Animation (the render loop) is the only reader. Animation is not
// safe for concurrent use by several readers.
type Animation struct {
	FirstFrame  TextureFrame
	otherFrames []TextureFrame
	receiver    <-chan TextureFrame
}

func (*Animation) texturedImage() {}

// NewAnimation returns an animation whose remaining frames arrive on rx.
// A nil rx means the frame set is already complete.
func NewAnimation(first TextureFrame, rx <-chan TextureFrame) *Animation {
	return &Animation{FirstFrame: first, receiver: rx}
}

// Frame returns frame i, where 0 is the first frame.
func (a *Animation) Frame(i int) (TextureFrame, bool) {
	if i == 0 {
		return a.FirstFrame, true
	}
	if i < 0 || i-1 >= len(a.otherFrames) {
		return TextureFrame{}, false
	}
	return a.otherFrames[i-1], true
}

// NumFrames returns how many frames are materialized so far.
func (a *Animation) NumFrames() int {
	return len(a.otherFrames) + 1
}

// Streaming reports whether more frames may still arrive.
func (a *Animation) Streaming() bool {
	return a.receiver != nil
}

// Drain appends every frame already waiting on the channel without
// blocking and returns how many were added. When the channel is closed
// the receiver is dropped and the frame count becomes final.
func (a *Animation) Drain() int {
	var n int
	for a.receiver != nil {
		select {
		case frame, ok := <-a.receiver:
			if !ok {
				a.receiver = nil
				return n
			}
			a.otherFrames = append(a.otherFrames, frame)
			n++
		default:
			return n
		}
	}
	return n
}
