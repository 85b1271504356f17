package mediacache

import "time"

// DefaultMinFrameDelay is the shortest delay a frame is shown for. GIFs
// commonly carry 0 or 10ms delays that were never meant literally.
const DefaultMinFrameDelay = 20 * time.Millisecond

// GifState tracks which frame of an animation is on screen.
type GifState struct {
	LastFrameRendered time.Time
	LastFrameDuration time.Duration
	// NextFrameTime is when the next frame is due. The zero time means
	// no switch is scheduled.
	NextFrameTime  time.Time
	LastFrameIndex int
}

// GifStateMap holds playback state per animation URL. It is owned by the
// render loop and is not safe for concurrent use.
type GifStateMap map[string]*GifState

// Step computes the playback state for the tick at now. prev is nil for
// the first tick. numFrames is the count of frames materialized so far and
// delayOf returns the delay of frame i. At most one frame is advanced per
// tick, and delays shorter than minDelay are raised to minDelay.
func Step(prev *GifState, now time.Time, numFrames int, delayOf func(int) time.Duration, minDelay time.Duration) GifState {
	if prev == nil {
		d := effectiveDelay(delayOf(0), minDelay)
		return GifState{
			LastFrameRendered: now,
			LastFrameDuration: d,
			NextFrameTime:     now.Add(d),
			LastFrameIndex:    0,
		}
	}

	state := *prev
	if state.LastFrameIndex >= numFrames {
		state.LastFrameIndex = 0
	}
	if numFrames <= 1 || state.NextFrameTime.IsZero() || now.Before(state.NextFrameTime) {
		return state
	}

	next := (state.LastFrameIndex + 1) % numFrames
	d := effectiveDelay(delayOf(next), minDelay)
	return GifState{
		LastFrameRendered: now,
		LastFrameDuration: d,
		NextFrameTime:     now.Add(d),
		LastFrameIndex:    next,
	}
}

func effectiveDelay(d, minDelay time.Duration) time.Duration {
	if d < minDelay {
		return minDelay
	}
	return d
}

// Advance drains newly streamed frames into anim, steps the playback state
// for url and returns the frame to display with its index.
func (m GifStateMap) Advance(url string, now time.Time, anim *Animation, minDelay time.Duration) (TextureFrame, int) {
	anim.Drain()

	delayOf := func(i int) time.Duration {
		f, _ := anim.Frame(i)
		return f.Delay
	}
	next := Step(m[url], now, anim.NumFrames(), delayOf, minDelay)
	m[url] = &next

	frame, ok := anim.Frame(next.LastFrameIndex)
	if !ok {
		return anim.FirstFrame, 0
	}
	return frame, next.LastFrameIndex
}
