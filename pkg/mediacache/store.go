package mediacache

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// tmpPrefix marks in-progress writes inside a cache directory.
const tmpPrefix = ".tmp-"

// CacheType selects the on-disk root and codec used for an entry.
type CacheType int

const (
	CacheImage CacheType = iota // Single-frame lossless stills
	CacheGif                    // Multi-frame animations
)

// String returns the cache type's directory name.
func (t CacheType) String() string {
	return RelDir(t)
}

// RelDir returns the subdirectory of the cache root used for t.
func RelDir(t CacheType) string {
	switch t {
	case CacheGif:
		return "gif"
	default:
		return "img"
	}
}

// CacheTypeFor picks the cache type for url from its MIME type, falling
// back to the URL's extension when the MIME type is unknown.
func CacheTypeFor(url, mimeType string) CacheType {
	if mimeType != "" {
		if strings.HasPrefix(mimeType, "image/gif") {
			return CacheGif
		}
		return CacheImage
	}
	u := url
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if strings.EqualFold(path.Ext(u), ".gif") {
		return CacheGif
	}
	return CacheImage
}

// CacheMap maps raw URLs to their load units.
type CacheMap map[string]*Promise[TexturedImage]

// MediaCache is the disk store for one cache type plus the in-memory
// URL→load-unit map for the current session. Disk operations only read
// the immutable directory and are safe from any goroutine.
type MediaCache struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	urlImgs CacheMap
}

// NewMediaCache creates a cache rooted at dir. The directory is created
// lazily on first write.
func NewMediaCache(dir string, logger *slog.Logger) *MediaCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaCache{
		dir:     dir,
		logger:  logger,
		urlImgs: make(CacheMap),
	}
}

// Dir returns the cache root directory.
func (c *MediaCache) Dir() string {
	return c.dir
}

// Path returns the absolute file path for url.
func (c *MediaCache) Path(url string) string {
	return filepath.Join(c.dir, Key(url))
}

// Read returns the stored bytes for url, or ErrNotFound on a miss.
func (c *MediaCache) Read(url string) ([]byte, error) {
	data, err := os.ReadFile(c.Path(url))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return data, nil
}

// Write stores img losslessly at the key path for url, replacing any
// existing entry.
func (c *MediaCache) Write(url string, img ColorImage) error {
	if err := img.Validate(); err != nil {
		return err
	}
	return c.writeAtomic(url, func(w io.Writer) error {
		return encodeStill(w, img)
	})
}

// WriteGif stores frames as one multi-frame GIF. Frames that cannot be
// encoded are logged and skipped; the remaining frames are still written.
// It fails only when the file cannot be created or no frame survives.
func (c *MediaCache) WriteGif(url string, frames []ImageFrame) error {
	out := &gif.GIF{}
	var bounds image.Rectangle

	for i, frame := range frames {
		nrgba, err := frame.Image.NRGBA()
		if err != nil {
			c.logger.Error("problem encoding frame", "url", url, "frame", i, "err", err)
			continue
		}
		if len(out.Image) == 0 {
			bounds = nrgba.Bounds()
		} else if !nrgba.Bounds().In(bounds) {
			c.logger.Error("problem encoding frame", "url", url, "frame", i,
				"err", fmt.Errorf("%w: frame %v outside canvas %v", ErrCodec, nrgba.Bounds(), bounds))
			continue
		}
		out.Image = append(out.Image, quantize(nrgba))
		out.Delay = append(out.Delay, toGIFDelay(frame.Delay))
		out.Disposal = append(out.Disposal, gif.DisposalBackground)
	}
	if len(out.Image) == 0 {
		return fmt.Errorf("%w: no encodable frames for %s", ErrCodec, url)
	}
	out.Config = image.Config{Width: bounds.Dx(), Height: bounds.Dy()}

	return c.writeAtomic(url, func(w io.Writer) error {
		if err := gif.EncodeAll(w, out); err != nil {
			return fmt.Errorf("%w: gif encode: %w", ErrCodec, err)
		}
		return nil
	})
}

// writeAtomic encodes into a temporary file next to the key path and
// renames it into place, so readers never see a partial entry.
func (c *MediaCache) writeAtomic(url string, encode func(io.Writer) error) error {
	p := c.Path(url)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("open cache file: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := encode(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("commit cache file: %w", err)
	}
	success = true
	return nil
}

// Get returns the load unit for url if one exists.
func (c *MediaCache) Get(url string) (*Promise[TexturedImage], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.urlImgs[url]
	return p, ok
}

// GetOrInsert returns the existing load unit for url, or stores and returns
// the one produced by create. create runs under the map lock, at most once
// per missing URL.
func (c *MediaCache) GetOrInsert(url string, create func() *Promise[TexturedImage]) (p *Promise[TexturedImage], existed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.urlImgs[url]; ok {
		return p, true
	}
	p = create()
	c.urlImgs[url] = p
	return p, false
}

// Insert stores p for url, replacing any previous load unit.
func (c *MediaCache) Insert(url string, p *Promise[TexturedImage]) {
	c.mu.Lock()
	c.urlImgs[url] = p
	c.mu.Unlock()
}

// Remove drops the load unit for url. Files on disk are left alone.
func (c *MediaCache) Remove(url string) {
	c.mu.Lock()
	delete(c.urlImgs, url)
	c.mu.Unlock()
}

// Len returns the number of load units held in memory.
func (c *MediaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urlImgs)
}

// Range calls fn for every load unit until fn returns false. fn must not
// call back into c.
func (c *MediaCache) Range(fn func(url string, p *Promise[TexturedImage]) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, p := range c.urlImgs {
		if !fn(url, p) {
			return
		}
	}
}
