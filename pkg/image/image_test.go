package image

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/tinyland/lab/mediacache/pkg/config"
	"gitlab.com/tinyland/lab/mediacache/pkg/mediacache"
	"gitlab.com/tinyland/lab/mediacache/pkg/terminal"
)

// --- helpers ---------------------------------------------------------------

func makeImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func makeColorImage(w, h int, c color.Color) mediacache.ColorImage {
	return mediacache.NewColorImage(makeImage(w, h, c))
}

func makeCaps(proto terminal.GraphicsProtocol) terminal.Capabilities {
	return terminal.Capabilities{
		Term:      terminal.TermGhostty,
		Protocol:  proto,
		TrueColor: true,
		Size:      terminal.Size{Cols: 80, Rows: 24, PixelW: 640, PixelH: 384, CellW: 8, CellH: 16},
	}
}

func halfblockRenderer() *Renderer {
	return NewRenderer(makeCaps(terminal.ProtocolHalfblocks), config.DisplayConfig{RenderCacheMB: 1})
}

// --- protocol selection ------------------------------------------------------

func TestProtocolFromCapabilities(t *testing.T) {
	r := NewRenderer(makeCaps(terminal.ProtocolKitty), config.DisplayConfig{})
	assert.Equal(t, terminal.ProtocolKitty, r.Protocol())
}

func TestProtocolConfigOverride(t *testing.T) {
	r := NewRenderer(makeCaps(terminal.ProtocolKitty), config.DisplayConfig{Protocol: "halfblocks"})
	assert.Equal(t, terminal.ProtocolHalfblocks, r.Protocol())
}

func TestProtocolAutoDoesNotOverride(t *testing.T) {
	r := NewRenderer(makeCaps(terminal.ProtocolITerm2), config.DisplayConfig{Protocol: "auto"})
	assert.Equal(t, terminal.ProtocolITerm2, r.Protocol())
}

// --- upload ------------------------------------------------------------------

func TestUploadCopiesPixels(t *testing.T) {
	r := halfblockRenderer()
	src := makeColorImage(3, 2, color.NRGBA{R: 200, A: 255})

	tex, err := r.Upload("https://example.com/a.png", src)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(3, 2), tex.Size())
	assert.EqualValues(t, 1, r.Uploads())

	src.Pixels[0] = 0
	assert.Equal(t, uint8(200), tex.(*Texture).Image().Pix[0], "texture must not alias the upload buffer")
	assert.Equal(t, "https://example.com/a.png", tex.(*Texture).Name())
}

func TestUploadIdenticalPixelsShareID(t *testing.T) {
	r := halfblockRenderer()
	a, err := r.Upload("a", makeColorImage(4, 4, color.White))
	require.NoError(t, err)
	b, err := r.Upload("b", makeColorImage(4, 4, color.White))
	require.NoError(t, err)
	c, err := r.Upload("c", makeColorImage(4, 4, color.Black))
	require.NoError(t, err)

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestUploadRejectsBadBuffer(t *testing.T) {
	r := halfblockRenderer()
	_, err := r.Upload("bad", mediacache.ColorImage{Width: 2, Height: 2, Pixels: []byte{1}})
	assert.ErrorIs(t, err, mediacache.ErrCodec)
}

// --- rendering ---------------------------------------------------------------

func TestRenderHalfblocksColours(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})

	out := renderHalfblocks(img)
	assert.Equal(t, "\x1b[38;2;255;0;0m\x1b[48;2;0;0;255m▀\x1b[0m", out)
}

func TestRenderHalfblocksTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	img.SetNRGBA(1, 1, color.NRGBA{G: 255, A: 255})

	out := renderHalfblocks(img)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "\x1b[0m ")
	assert.Contains(t, lines[0], "▄", "lower pixel only")
	assert.True(t, strings.HasSuffix(out, "\x1b[0m"))
}

func TestRenderTextureIsCached(t *testing.T) {
	r := halfblockRenderer()
	tex, err := r.Upload("a", makeColorImage(8, 8, color.NRGBA{G: 128, A: 255}))
	require.NoError(t, err)

	first, err := r.RenderTexture(tex, 4, 2)
	require.NoError(t, err)
	second, err := r.RenderTexture(tex, 4, 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	stats := r.Cache().Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestRenderTextureFitsCellArea(t *testing.T) {
	r := halfblockRenderer()
	tex, err := r.Upload("a", makeColorImage(40, 40, color.White))
	require.NoError(t, err)

	out, err := r.RenderTexture(tex, 10, 5)
	require.NoError(t, err)
	assert.Len(t, strings.Split(out, "\n"), 5)
}

type foreignTexture struct{}

func (foreignTexture) ID() string        { return "x" }
func (foreignTexture) Size() image.Point { return image.Pt(1, 1) }

func TestRenderTextureRejectsForeignTexture(t *testing.T) {
	_, err := halfblockRenderer().RenderTexture(foreignTexture{}, 4, 4)
	assert.Error(t, err)
}

func TestRenderDisabled(t *testing.T) {
	r := NewRenderer(makeCaps(terminal.ProtocolNone), config.DisplayConfig{})
	_, err := r.Render(makeImage(2, 2, color.White), 2, 2)
	assert.Error(t, err)
	_, err = r.Render(nil, 2, 2)
	assert.Error(t, err)
}

// --- resize ------------------------------------------------------------------

func TestResizeToFitNoUpscale(t *testing.T) {
	img := makeImage(10, 10, color.White)
	assert.Same(t, img, ResizeToFit(img, 80, 24, 8, 16))
}

func TestResizeToFitKeepsAspect(t *testing.T) {
	out := ResizeToFit(makeImage(400, 200, color.White), 10, 10, 8, 16)
	assert.Equal(t, image.Pt(80, 40), out.Bounds().Size())
}

func TestResizeToFitDefaultsCellSize(t *testing.T) {
	out := ResizeToFit(makeImage(1000, 1000, color.White), 1, 1, 0, 0)
	assert.Equal(t, image.Pt(8, 8), out.Bounds().Size())
	assert.Nil(t, ResizeToFit(nil, 1, 1, 1, 1))
}

// --- cache -------------------------------------------------------------------

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(1)
	big := strings.Repeat("x", 400<<10)
	k := func(id string) CacheKey { return CacheKey{Protocol: "halfblocks", Width: 1, Height: 1, TextureID: id} }

	c.Put(k("a"), big)
	c.Put(k("b"), big)
	_, ok := c.Get(k("a"))
	require.True(t, ok)
	c.Put(k("c"), big)

	_, ok = c.Get(k("b"))
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get(k("a"))
	assert.True(t, ok)
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestCacheSkipsOversizedEntry(t *testing.T) {
	c := NewCache(1)
	key := CacheKey{TextureID: "huge"}
	c.Put(key, strings.Repeat("x", 2<<20))
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(1)
	c.Put(CacheKey{TextureID: "a"}, "x")
	c.Invalidate()
	assert.Equal(t, 0, c.Stats().Entries)
	assert.Zero(t, c.Stats().SizeBytes)
	assert.Equal(t, "halfblocks:1x2:a", CacheKey{Protocol: "halfblocks", Width: 1, Height: 2, TextureID: "a"}.String())
}
