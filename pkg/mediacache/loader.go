package mediacache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchResult is the raw encoded media returned by a Fetcher.
type FetchResult struct {
	Data     []byte
	MimeType string
}

// Fetcher retrieves encoded media bytes for a URL that is not cached on
// disk.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (FetchResult, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (FetchResult, error) {
	return f(ctx, url)
}

// LoaderConfig tunes the decode pipeline.
type LoaderConfig struct {
	// Workers bounds concurrent loads. Zero uses the default.
	Workers int

	// MaxDimension downscales decoded frames so neither side exceeds it.
	// Zero keeps the original size.
	MaxDimension int

	// FetchTimeout bounds a single Fetcher call. Zero means no timeout.
	FetchTimeout time.Duration
}

// Loader runs the decode/upload pipeline for load units on a bounded
// worker pool. Animations resolve once their first frame is uploaded and
// stream the rest from a background goroutine.
type Loader struct {
	fetcher  Fetcher
	uploader Uploader
	cfg      LoaderConfig
	logger   *slog.Logger

	pool    *pool
	fetches singleflight.Group
	streams sync.WaitGroup
}

// NewLoader creates a Loader and starts its worker pool.
func NewLoader(fetcher Fetcher, uploader Uploader, cfg LoaderConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher:  fetcher,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
		pool:     newPool(cfg.Workers),
	}
}

// Load starts the pipeline for url and returns its pending unit. Callers
// that need the at-most-once guarantee go through Images.Request.
func (l *Loader) Load(cache *MediaCache, url string, typ CacheType) *Promise[TexturedImage] {
	p := NewPromise[TexturedImage]()
	ok := l.pool.submit(func() {
		start := time.Now()
		img, err := l.load(cache, url, typ)
		if err != nil {
			l.logger.Warn("media load failed", "url", url, "type", typ, "err", err)
		} else {
			l.logger.Debug("media loaded", "url", url, "type", typ, "elapsed", time.Since(start))
		}
		p.resolve(img, err)
	})
	if !ok {
		p.resolve(nil, ErrClosed)
	}
	return p
}

// Close stops the worker pool and waits for in-flight loads and frame
// streams to finish.
func (l *Loader) Close() {
	l.pool.close()
	l.streams.Wait()
}

func (l *Loader) load(cache *MediaCache, url string, typ CacheType) (TexturedImage, error) {
	data, err := cache.Read(url)
	fetched := err != nil
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.logger.Warn("cache read failed, fetching", "url", url, "err", err)
		}
		res, err := l.fetch(url)
		if err != nil {
			return nil, err
		}
		data = res.Data
	}

	switch typ {
	case CacheGif:
		return l.loadAnimation(cache, url, data, fetched)
	default:
		return l.loadStill(cache, url, data, fetched)
	}
}

// fetch collapses concurrent fetches of the same URL, so a URL requested
// as both a still and an animation hits the network once.
func (l *Loader) fetch(url string) (FetchResult, error) {
	if l.fetcher == nil {
		return FetchResult{}, fmt.Errorf("%w: %s: no fetcher configured", ErrFetch, url)
	}
	v, err, _ := l.fetches.Do(url, func() (any, error) {
		ctx := context.Background()
		if l.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.cfg.FetchTimeout)
			defer cancel()
		}
		return l.fetcher.Fetch(ctx, url)
	})
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}
	return v.(FetchResult), nil
}

func (l *Loader) loadStill(cache *MediaCache, url string, data []byte, fetched bool) (TexturedImage, error) {
	img, err := DecodeStill(data)
	if err != nil {
		return nil, err
	}
	img = fitWithin(img, l.cfg.MaxDimension)

	if fetched {
		if err := cache.Write(url, img); err != nil {
			l.logger.Warn("failed to cache image", "url", url, "err", err)
		}
	}

	tex, err := l.upload(url, img)
	if err != nil {
		return nil, err
	}
	return StaticImage{Texture: tex}, nil
}

func (l *Loader) loadAnimation(cache *MediaCache, url string, data []byte, fetched bool) (TexturedImage, error) {
	dec, err := NewFrameDecoder(data)
	if err != nil {
		return nil, err
	}
	first, err := dec.Next()
	if err != nil {
		return nil, fmt.Errorf("%w: first frame: %w", ErrCodec, err)
	}
	first.Image = fitWithin(first.Image, l.cfg.MaxDimension)

	tex, err := l.upload(frameName(url, 0), first.Image)
	if err != nil {
		return nil, err
	}
	firstFrame := TextureFrame{Delay: first.Delay, Texture: tex}

	remaining := dec.Len() - 1
	if remaining <= 0 {
		if fetched {
			l.writeGif(cache, url, []ImageFrame{first})
		}
		return NewAnimation(firstFrame, nil), nil
	}

	// Sized to the remaining frames so the producer never blocks on a
	// render loop that stopped draining.
	ch := make(chan TextureFrame, remaining)
	l.streams.Add(1)
	go l.stream(cache, url, dec, first, ch, fetched)

	return NewAnimation(firstFrame, ch), nil
}

// stream decodes and uploads the frames after the first one, in order.
// A decode or upload failure truncates the animation to the frames
// already sent.
func (l *Loader) stream(cache *MediaCache, url string, dec FrameDecoder, first ImageFrame, ch chan<- TextureFrame, fetched bool) {
	defer l.streams.Done()

	frames := []ImageFrame{first}
	for i := 1; ; i++ {
		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			l.logger.Warn("animation truncated", "url", url, "frame", i, "err", err)
			break
		}
		frame.Image = fitWithin(frame.Image, l.cfg.MaxDimension)

		tex, err := l.upload(frameName(url, i), frame.Image)
		if err != nil {
			l.logger.Warn("animation truncated", "url", url, "frame", i, "err", err)
			break
		}
		ch <- TextureFrame{Delay: frame.Delay, Texture: tex}
		frames = append(frames, frame)
	}
	close(ch)

	if fetched {
		l.writeGif(cache, url, frames)
	}
}

func (l *Loader) writeGif(cache *MediaCache, url string, frames []ImageFrame) {
	if err := cache.WriteGif(url, frames); err != nil {
		l.logger.Warn("failed to cache animation", "url", url, "err", err)
	}
}

func (l *Loader) upload(name string, img ColorImage) (Texture, error) {
	if l.uploader == nil {
		return nil, fmt.Errorf("upload %s: no uploader configured", name)
	}
	tex, err := l.uploader.Upload(name, img)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	return tex, nil
}

func frameName(url string, i int) string {
	if i == 0 {
		return url
	}
	return fmt.Sprintf("%s#%d", url, i)
}
