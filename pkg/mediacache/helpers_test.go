package mediacache

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// --- helpers ---------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// solidImage creates a w×h buffer filled with c.
func solidImage(w, h int, c color.NRGBA) ColorImage {
	pix := make([]byte, 0, w*h*4)
	for i := 0; i < w*h; i++ {
		pix = append(pix, c.R, c.G, c.B, c.A)
	}
	return ColorImage{Width: w, Height: h, Pixels: pix}
}

// checkerImage creates a two-colour checkerboard so round trips exercise
// more than one palette entry.
func checkerImage(w, h int, a, b color.NRGBA) ColorImage {
	pix := make([]byte, 0, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := a
			if (x+y)%2 == 1 {
				c = b
			}
			pix = append(pix, c.R, c.G, c.B, c.A)
		}
	}
	return ColorImage{Width: w, Height: h, Pixels: pix}
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// pngBytes encodes img as PNG.
func pngBytes(t *testing.T, img ColorImage) []byte {
	t.Helper()
	nrgba, err := img.NRGBA()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, nrgba))
	return buf.Bytes()
}

// gifBytes encodes frames as an animated GIF.
func gifBytes(t *testing.T, frames []ImageFrame) []byte {
	t.Helper()
	g := &gif.GIF{}
	for _, f := range frames {
		nrgba, err := f.Image.NRGBA()
		require.NoError(t, err)
		g.Image = append(g.Image, quantize(nrgba))
		g.Delay = append(g.Delay, toGIFDelay(f.Delay))
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

func threeFrames() []ImageFrame {
	return []ImageFrame{
		{Delay: 100 * time.Millisecond, Image: solidImage(4, 3, red)},
		{Delay: 200 * time.Millisecond, Image: checkerImage(4, 3, green, white)},
		{Delay: 50 * time.Millisecond, Image: solidImage(4, 3, blue)},
	}
}

// fakeTexture is the handle returned by fakeUploader.
type fakeTexture struct {
	name string
	size image.Point
}

func (t *fakeTexture) ID() string        { return t.name }
func (t *fakeTexture) Size() image.Point { return t.size }

// fakeUploader records uploads and fails the upload numbered failAt
// (1-based) when failAt > 0.
type fakeUploader struct {
	mu     sync.Mutex
	names  []string
	failAt int
}

func (u *fakeUploader) Upload(name string, img ColorImage) (Texture, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, name)
	if u.failAt > 0 && len(u.names) == u.failAt {
		return nil, errors.New("gpu out of memory")
	}
	return &fakeTexture{name: name, size: image.Pt(img.Width, img.Height)}, nil
}

func (u *fakeUploader) uploads() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.names...)
}

// fakeFetcher serves fixed bodies per URL and counts calls. When gate is
// non-nil every fetch blocks until it is closed.
type fakeFetcher struct {
	bodies map[string]FetchResult
	gate   chan struct{}
	calls  atomic.Int64
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (FetchResult, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return FetchResult{}, ctx.Err()
		}
	}
	res, ok := f.bodies[url]
	if !ok {
		return FetchResult{}, ErrNotFound
	}
	return res, nil
}

// waitResolved waits for p to settle, failing the test after a timeout.
func waitResolved(t *testing.T, p *Promise[TexturedImage]) (TexturedImage, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := p.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "load did not resolve")
	return v, err
}

// drainAll drains anim until its stream closes.
func drainAll(t *testing.T, anim *Animation) {
	t.Helper()
	require.Eventually(t, func() bool {
		anim.Drain()
		return !anim.Streaming()
	}, 5*time.Second, 5*time.Millisecond)
}
