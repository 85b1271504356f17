package mediacache

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Images is the cache registry: one MediaCache per cache type, the loader
// that fills them and the playback state of every animation shown this
// session. Construct it once at startup, run MigrateV0, then serve
// requests.
type Images struct {
	StaticImgs *MediaCache
	Gifs       *MediaCache
	GifStates  GifStateMap

	// MinFrameDelay is the shortest time an animation frame stays on
	// screen. Defaults to DefaultMinFrameDelay.
	MinFrameDelay time.Duration

	loader    *Loader
	logger    *slog.Logger
	sessionID string
}

// NewImages creates a registry whose caches live under dir/img and
// dir/gif.
func NewImages(dir string, loader *Loader, logger *slog.Logger) *Images {
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := uuid.NewString()
	logger = logger.With("session", sessionID)

	return &Images{
		StaticImgs:    NewMediaCache(filepath.Join(dir, RelDir(CacheImage)), logger.With("cache", RelDir(CacheImage))),
		Gifs:          NewMediaCache(filepath.Join(dir, RelDir(CacheGif)), logger.With("cache", RelDir(CacheGif))),
		GifStates:     make(GifStateMap),
		MinFrameDelay: DefaultMinFrameDelay,
		loader:        loader,
		logger:        logger,
		sessionID:     sessionID,
	}
}

// SessionID identifies this registry in log output.
func (i *Images) SessionID() string {
	return i.sessionID
}

// Cache returns the MediaCache for t.
func (i *Images) Cache(t CacheType) *MediaCache {
	if t == CacheGif {
		return i.Gifs
	}
	return i.StaticImgs
}

// MigrateV0 migrates legacy entries of both caches. It must run once at
// startup before any request; repeating it is harmless.
func (i *Images) MigrateV0() error {
	var g errgroup.Group
	g.Go(i.StaticImgs.MigrateV0)
	g.Go(i.Gifs.MigrateV0)
	return g.Wait()
}

// Request returns the load unit for url, starting a load on the first
// request. Later requests, including those made while the load is still
// in flight, get the same unit.
func (i *Images) Request(url string, t CacheType) *Promise[TexturedImage] {
	cache := i.Cache(t)
	p, existed := cache.GetOrInsert(url, func() *Promise[TexturedImage] {
		if i.loader == nil {
			return Resolved[TexturedImage](nil, ErrClosed)
		}
		return i.loader.Load(cache, url, t)
	})
	if !existed {
		i.logger.Debug("media requested", "url", url, "type", t)
	}
	return p
}

// Frame returns the frame of anim that should be visible at now, advancing
// the playback state for url.
func (i *Images) Frame(url string, anim *Animation, now time.Time) TextureFrame {
	frame, _ := i.GifStates.Advance(url, now, anim, i.MinFrameDelay)
	return frame
}

// PlaybackIndex returns the frame index last shown for url.
func (i *Images) PlaybackIndex(url string) (int, bool) {
	st, ok := i.GifStates[url]
	if !ok {
		return 0, false
	}
	return st.LastFrameIndex, true
}

// Close stops the loader, waits for running pipelines and drops the
// playback state.
func (i *Images) Close() {
	if i.loader != nil {
		i.loader.Close()
	}
	i.GifStates = make(GifStateMap)
}
