// Package image renders uploaded media textures to terminal escape
// sequences. Renderer implements mediacache.Uploader: decoded frames are
// "uploaded" into in-memory textures and rendered on demand through the
// Kitty, iTerm2 or Sixel protocols (via go-termimg) or with Unicode half
// blocks.
package image

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync/atomic"

	"github.com/blacktop/go-termimg"

	"gitlab.com/tinyland/lab/mediacache/pkg/config"
	"gitlab.com/tinyland/lab/mediacache/pkg/mediacache"
	"gitlab.com/tinyland/lab/mediacache/pkg/terminal"
)

// Texture is an uploaded frame. It is immutable once created.
type Texture struct {
	id   string
	name string
	img  *image.NRGBA
}

// ID is a content hash of the texture's pixels; identical frames share it.
func (t *Texture) ID() string { return t.id }

// Name is the name the texture was uploaded under (usually its URL).
func (t *Texture) Name() string { return t.name }

// Size returns the texture's pixel dimensions.
func (t *Texture) Size() image.Point { return t.img.Rect.Size() }

// Image returns the texture's pixels.
func (t *Texture) Image() *image.NRGBA { return t.img }

// Renderer uploads decoded frames and renders them to escape strings.
type Renderer struct {
	protocol terminal.GraphicsProtocol
	size     terminal.Size
	cache    *Cache
	uploads  atomic.Uint64
}

// NewRenderer creates a Renderer for the detected terminal. A configured
// protocol other than "auto" overrides detection.
func NewRenderer(caps terminal.Capabilities, cfg config.DisplayConfig) *Renderer {
	proto := caps.Protocol
	if cfg.Protocol != "" && cfg.Protocol != "auto" {
		proto = terminal.SelectProtocolWithOverride(caps.Term, cfg.Protocol)
	}
	return &Renderer{
		protocol: proto,
		size:     caps.Size,
		cache:    NewCache(cfg.RenderCacheMB),
	}
}

// Protocol returns the active rendering protocol.
func (r *Renderer) Protocol() terminal.GraphicsProtocol {
	return r.protocol
}

// Cache returns the render cache for inspection or invalidation.
func (r *Renderer) Cache() *Cache {
	return r.cache
}

// Uploads returns how many textures have been created.
func (r *Renderer) Uploads() uint64 {
	return r.uploads.Load()
}

// Upload implements mediacache.Uploader. The pixels are copied, so the
// caller keeps ownership of img.
func (r *Renderer) Upload(name string, img mediacache.ColorImage) (mediacache.Texture, error) {
	src, err := img.NRGBA()
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)

	r.uploads.Add(1)
	return &Texture{id: hashPixels(dst), name: name, img: dst}, nil
}

// RenderTexture renders tex into a cols×rows cell area. Results are
// memoized per texture and area.
func (r *Renderer) RenderTexture(tex mediacache.Texture, cols, rows int) (string, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return "", fmt.Errorf("render: texture %T was not uploaded by this renderer", tex)
	}
	key := CacheKey{Protocol: r.protocol.String(), Width: cols, Height: rows, TextureID: t.id}
	if s, ok := r.cache.Get(key); ok {
		return s, nil
	}
	s, err := r.Render(t.img, cols, rows)
	if err != nil {
		return "", err
	}
	r.cache.Put(key, s)
	return s, nil
}

// Render converts img to an escape string for a cols×rows cell area
// without caching.
func (r *Renderer) Render(img image.Image, cols, rows int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("image is nil")
	}
	switch r.protocol {
	case terminal.ProtocolNone:
		return "", fmt.Errorf("image rendering is disabled (protocol=none)")
	case terminal.ProtocolKitty:
		return r.renderTermimg(img, termimg.Kitty, cols, rows)
	case terminal.ProtocolITerm2:
		return r.renderTermimg(img, termimg.ITerm2, cols, rows)
	case terminal.ProtocolSixel:
		return r.renderTermimg(img, termimg.Sixel, cols, rows)
	default:
		return renderHalfblocks(halfblockSize(img, cols, rows)), nil
	}
}

func (r *Renderer) renderTermimg(img image.Image, proto termimg.Protocol, cols, rows int) (string, error) {
	resized := ResizeToFit(img, cols, rows, r.size.CellW, r.size.CellH)
	ti := termimg.New(resized)
	if ti == nil {
		return "", fmt.Errorf("go-termimg: failed to create image wrapper")
	}
	ti.Protocol(proto).Size(cols, rows).Scale(termimg.ScaleFit)
	return ti.Render()
}

// renderHalfblocks draws two pixel rows per text row: the upper pixel is
// the foreground of U+2580, the lower one the background. Fully
// transparent pixels show the terminal's default background.
func renderHalfblocks(img image.Image) string {
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(img.Bounds())
		for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
			for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
				nrgba.Set(x, y, img.At(x, y))
			}
		}
	}
	b := nrgba.Bounds()

	var sb strings.Builder
	sb.Grow(b.Dx() * (b.Dy()/2 + 1) * 40)
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteString("\x1b[0m\n")
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := nrgba.NRGBAAt(x, y)
			var bot color.NRGBA
			if y+1 < b.Max.Y {
				bot = nrgba.NRGBAAt(x, y+1)
			}
			switch {
			case top.A == 0 && bot.A == 0:
				sb.WriteString("\x1b[0m ")
			case top.A == 0:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▄", bot.R, bot.G, bot.B)
			case bot.A == 0:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▀", top.R, top.G, top.B)
			default:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
					top.R, top.G, top.B, bot.R, bot.G, bot.B)
			}
		}
	}
	sb.WriteString("\x1b[0m")
	return sb.String()
}

// hashPixels returns a hex SHA-256 over the dimensions and pixels of img.
func hashPixels(img *image.NRGBA) string {
	h := sha256.New()
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[:4], uint32(img.Rect.Dx()))
	binary.LittleEndian.PutUint32(dims[4:], uint32(img.Rect.Dy()))
	h.Write(dims[:])
	h.Write(img.Pix)
	return hex.EncodeToString(h.Sum(nil))
}
