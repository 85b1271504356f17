package mediacache

import (
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// ColorImage is a decoded pixel buffer: non-premultiplied RGBA8, row-major,
// four bytes per pixel.
type ColorImage struct {
	Width  int
	Height int
	Pixels []byte
}

// NewColorImage converts any image.Image into a ColorImage.
func NewColorImage(img image.Image) ColorImage {
	nrgba := imaging.Clone(img)
	return ColorImage{
		Width:  nrgba.Rect.Dx(),
		Height: nrgba.Rect.Dy(),
		Pixels: nrgba.Pix,
	}
}

// Validate checks that the buffer length matches the declared dimensions.
func (c ColorImage) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrCodec, c.Width, c.Height)
	}
	if want := c.Width * c.Height * 4; len(c.Pixels) != want {
		return fmt.Errorf("%w: buffer holds %d bytes, %dx%d RGBA needs %d",
			ErrCodec, len(c.Pixels), c.Width, c.Height, want)
	}
	return nil
}

// NRGBA returns the buffer as an *image.NRGBA sharing the pixel slice.
func (c ColorImage) NRGBA() (*image.NRGBA, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    c.Pixels,
		Stride: c.Width * 4,
		Rect:   image.Rect(0, 0, c.Width, c.Height),
	}, nil
}

// ImageFrame is one decoded animation frame and how long it stays on screen.
type ImageFrame struct {
	Delay time.Duration
	Image ColorImage
}

// fitWithin downscales img so neither side exceeds maxDim. Images that
// already fit, and a maxDim <= 0, return img unchanged.
func fitWithin(img ColorImage, maxDim int) ColorImage {
	if maxDim <= 0 || (img.Width <= maxDim && img.Height <= maxDim) {
		return img
	}
	src, err := img.NRGBA()
	if err != nil {
		return img
	}
	return NewColorImage(imaging.Fit(src, maxDim, maxDim, imaging.Lanczos))
}
