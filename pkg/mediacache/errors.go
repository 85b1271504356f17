package mediacache

import "errors"

var (
	// ErrNotFound reports that no entry exists at the derived key. A miss
	// means "not cached", callers fall back to fetching.
	ErrNotFound = errors.New("mediacache: entry not found")

	// ErrCodec wraps encode and decode failures of still images and
	// animation frames.
	ErrCodec = errors.New("mediacache: codec error")

	// ErrLegacyName reports a filename that is not a valid legacy
	// base-32 encoded URL.
	ErrLegacyName = errors.New("mediacache: invalid legacy filename")

	// ErrFetch wraps failures returned by the Fetcher.
	ErrFetch = errors.New("mediacache: fetch failed")

	// ErrClosed is returned for loads requested after the loader was closed.
	ErrClosed = errors.New("mediacache: loader closed")
)
