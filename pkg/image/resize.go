package image

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Default cell geometry when the terminal does not report pixel sizes.
const (
	defaultCellW = 8
	defaultCellH = 16
)

// ResizeToFit scales img to fit a maxCols×maxRows cell area while keeping
// its aspect ratio. Images that already fit are returned unmodified; there
// is no upscaling. Non-positive cell sizes fall back to 8×16 pixels.
func ResizeToFit(img image.Image, maxCols, maxRows, cellW, cellH int) image.Image {
	if img == nil {
		return nil
	}
	if cellW <= 0 {
		cellW = defaultCellW
	}
	if cellH <= 0 {
		cellH = defaultCellH
	}
	maxW := max(maxCols, 1) * cellW
	maxH := max(maxRows, 1) * cellH

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 || (srcW <= maxW && srcH <= maxH) {
		return img
	}

	scale := math.Min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	dstW := max(int(math.Round(float64(srcW)*scale)), 1)
	dstH := max(int(math.Round(float64(srcH)*scale)), 1)

	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}

// halfblockSize is the pixel area that fits cols×rows cells when every
// cell shows two vertically stacked pixels.
func halfblockSize(img image.Image, cols, rows int) image.Image {
	return ResizeToFit(img, cols, rows, 1, 2)
}
