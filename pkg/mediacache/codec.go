package mediacache

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// gifDelayUnit is the resolution of GIF frame delays.
const gifDelayUnit = 10 * time.Millisecond

// maxGIFDelay is the largest delay a GIF frame can carry (uint16 centiseconds).
const maxGIFDelay = 65535

// encodeStill writes img as a lossless PNG.
func encodeStill(w io.Writer, img ColorImage) error {
	nrgba, err := img.NRGBA()
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, nrgba, imaging.PNG); err != nil {
		return fmt.Errorf("%w: png encode: %w", ErrCodec, err)
	}
	return nil
}

// DecodeStill decodes PNG, JPEG, GIF (first frame), WebP or BMP bytes into
// a ColorImage.
func DecodeStill(data []byte) (ColorImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ColorImage{}, fmt.Errorf("%w: decode: %w", ErrCodec, err)
	}
	return NewColorImage(img), nil
}

// toGIFDelay converts d to centiseconds, rounding to the nearest unit and
// saturating at the GIF maximum.
func toGIFDelay(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	cs := (d + gifDelayUnit/2) / gifDelayUnit
	if cs > maxGIFDelay {
		return maxGIFDelay
	}
	return int(cs)
}

func fromGIFDelay(cs int) time.Duration {
	return time.Duration(cs) * gifDelayUnit
}

// quantize maps img onto a palette. Frames with at most 256 distinct
// colours get an exact palette so they survive a write/read cycle
// unchanged; larger frames are dithered onto Plan9.
func quantize(img *image.NRGBA) *image.Paletted {
	bounds := img.Bounds()
	index := make(map[color.NRGBA]uint8)
	var pal color.Palette
	exact := true

scan:
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := normalize(img.NRGBAAt(x, y))
			if _, ok := index[c]; ok {
				continue
			}
			if len(pal) == 256 {
				exact = false
				break scan
			}
			index[c] = uint8(len(pal))
			pal = append(pal, c)
		}
	}

	if !exact {
		out := image.NewPaletted(bounds, palette.Plan9)
		xdraw.FloydSteinberg.Draw(out, bounds, img, bounds.Min)
		return out
	}

	out := image.NewPaletted(bounds, pal)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetColorIndex(x, y, index[normalize(img.NRGBAAt(x, y))])
		}
	}
	return out
}

// normalize folds every fully transparent pixel onto one palette entry.
func normalize(c color.NRGBA) color.NRGBA {
	if c.A == 0 {
		return color.NRGBA{}
	}
	return c
}

// FrameDecoder yields animation frames in their original order. Next
// returns io.EOF once every frame has been produced.
type FrameDecoder interface {
	Next() (ImageFrame, error)
	// Len is the total number of frames the decoder will produce.
	Len() int
}

// NewFrameDecoder returns a decoder over GIF data. Anything else that
// DecodeStill understands decodes as a single-frame animation.
func NewFrameDecoder(data []byte) (FrameDecoder, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		still, stillErr := DecodeStill(data)
		if stillErr != nil {
			return nil, fmt.Errorf("%w: gif decode: %w", ErrCodec, err)
		}
		return &stillFrames{img: still}, nil
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("%w: gif has no frames", ErrCodec)
	}
	return newGIFFrames(g), nil
}

type stillFrames struct {
	img  ColorImage
	done bool
}

func (s *stillFrames) Next() (ImageFrame, error) {
	if s.done {
		return ImageFrame{}, io.EOF
	}
	s.done = true
	return ImageFrame{Image: s.img}, nil
}

func (s *stillFrames) Len() int { return 1 }

// gifFrames composites GIF frames onto a canvas one at a time, honouring
// each frame's disposal method.
type gifFrames struct {
	g      *gif.GIF
	canvas *image.NRGBA
	saved  *image.NRGBA
	next   int
}

func newGIFFrames(g *gif.GIF) *gifFrames {
	w, h := g.Config.Width, g.Config.Height
	for _, frame := range g.Image {
		b := frame.Bounds()
		w = max(w, b.Max.X)
		h = max(h, b.Max.Y)
	}
	return &gifFrames{
		g:      g,
		canvas: image.NewNRGBA(image.Rect(0, 0, w, h)),
	}
}

func (d *gifFrames) Len() int { return len(d.g.Image) }

func (d *gifFrames) Next() (ImageFrame, error) {
	if d.next >= len(d.g.Image) {
		return ImageFrame{}, io.EOF
	}
	i := d.next
	d.next++

	if i > 0 {
		prev := d.g.Image[i-1].Bounds()
		switch d.disposal(i - 1) {
		case gif.DisposalBackground:
			draw.Draw(d.canvas, prev, image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			if d.saved != nil {
				draw.Draw(d.canvas, prev, d.saved, prev.Min, draw.Src)
			}
		}
	}
	if d.disposal(i) == gif.DisposalPrevious {
		d.saved = imaging.Clone(d.canvas)
	}

	frame := d.g.Image[i]
	draw.Draw(d.canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

	var delay time.Duration
	if i < len(d.g.Delay) {
		delay = fromGIFDelay(d.g.Delay[i])
	}
	return ImageFrame{
		Delay: delay,
		Image: NewColorImage(d.canvas),
	}, nil
}

func (d *gifFrames) disposal(i int) byte {
	if i < len(d.g.Disposal) {
		return d.g.Disposal[i]
	}
	return 0
}
