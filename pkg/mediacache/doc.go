// Package mediacache is a content-addressed, disk-backed cache for decoded
// still images and animated image sequences.
//
// Entries are addressed by the SHA-256 of their URL and sharded on disk as
// {hex2}/{hex2}/{hex64} under a per-type root ("img" for stills, "gif" for
// animations). Loads run on a worker pool and are memoized per URL as a
// Promise that the render loop polls without blocking. Animations resolve
// as soon as their first frame is uploaded; the remaining frames stream in
// over a channel that the render loop drains once per tick, and GifState
// tracks which frame should be visible at a given instant.
//
// Network fetch and texture upload are collaborators injected through the
// Fetcher and Uploader interfaces.
package mediacache
