// Package fetch implements mediacache.Fetcher over HTTP(S) and the local
// filesystem, and memoizes the MIME type resolved for each URL.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gitlab.com/tinyland/lab/mediacache/pkg/mediacache"
)

// DefaultMaxBytes caps a response body when no limit is configured.
const DefaultMaxBytes = 32 << 20

// userAgent is sent with every HTTP request.
const userAgent = "mediacache/1"

// Mimes remembers the MIME type resolved for each URL during a session.
type Mimes struct {
	mu    sync.RWMutex
	types map[string]string
}

// NewMimes returns an empty MIME memo.
func NewMimes() *Mimes {
	return &Mimes{types: make(map[string]string)}
}

// Get returns the MIME type recorded for rawURL.
func (m *Mimes) Get(rawURL string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.types[rawURL]
	return t, ok
}

// Set records the MIME type for rawURL.
func (m *Mimes) Set(rawURL, mimeType string) {
	m.mu.Lock()
	m.types[rawURL] = mimeType
	m.mu.Unlock()
}

// Client fetches media bytes. The zero value is not usable; use New.
type Client struct {
	http     *http.Client
	maxBytes int64
	mimes    *Mimes
	logger   *slog.Logger
}

// New creates a Client. A nil httpClient uses http.DefaultClient and
// maxBytes <= 0 uses DefaultMaxBytes.
func New(httpClient *http.Client, maxBytes int64, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:     httpClient,
		maxBytes: maxBytes,
		mimes:    NewMimes(),
		logger:   logger,
	}
}

// Mimes returns the client's MIME memo.
func (c *Client) Mimes() *Mimes {
	return c.mimes
}

// Fetch implements mediacache.Fetcher. http and https URLs are fetched
// over the network; file URLs and bare paths are read from disk. A
// missing resource fails with mediacache.ErrNotFound.
func (c *Client) Fetch(ctx context.Context, rawURL string) (mediacache.FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return mediacache.FetchResult{}, fmt.Errorf("parse url: %w", err)
	}

	var res mediacache.FetchResult
	switch u.Scheme {
	case "http", "https":
		res, err = c.fetchHTTP(ctx, rawURL)
	case "file":
		res, err = c.fetchFile(u.Path)
	case "":
		res, err = c.fetchFile(rawURL)
	default:
		return mediacache.FetchResult{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return mediacache.FetchResult{}, err
	}

	c.mimes.Set(rawURL, res.MimeType)
	c.logger.Debug("fetched media", "url", rawURL, "mime", res.MimeType, "bytes", len(res.Data))
	return res, nil
}

func (c *Client) fetchHTTP(ctx context.Context, rawURL string) (mediacache.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return mediacache.FetchResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return mediacache.FetchResult{}, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return mediacache.FetchResult{}, fmt.Errorf("get %s: %s: %w", rawURL, resp.Status, mediacache.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return mediacache.FetchResult{}, fmt.Errorf("get %s: unexpected status %s", rawURL, resp.Status)
	}

	data, err := c.readLimited(resp.Body)
	if err != nil {
		return mediacache.FetchResult{}, fmt.Errorf("get %s: %w", rawURL, err)
	}
	return mediacache.FetchResult{Data: data, MimeType: resolveMime(resp.Header.Get("Content-Type"), data)}, nil
}

func (c *Client) fetchFile(path string) (mediacache.FetchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return mediacache.FetchResult{}, fmt.Errorf("open %s: %w", path, mediacache.ErrNotFound)
		}
		return mediacache.FetchResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := c.readLimited(f)
	if err != nil {
		return mediacache.FetchResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	return mediacache.FetchResult{Data: data, MimeType: resolveMime(mime.TypeByExtension(filepath.Ext(path)), data)}, nil
}

// readLimited reads r fully, failing if it holds more than maxBytes.
func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", c.maxBytes)
	}
	return data, nil
}

// resolveMime prefers a declared image type and sniffs the content
// otherwise; servers often label images application/octet-stream.
func resolveMime(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mt, "image/") {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
