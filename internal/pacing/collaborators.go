package pacing

import (
	"context"

	"go.uber.org/atomic"

	"github.com/pricofy/reading-pacer/internal/domain"
)

// Revealer makes a chunk visible. Reveal returns once the chunk's reveal
// animation has finished or ctx is cancelled.
type Revealer interface {
	Reveal(ctx context.Context, index int) error
}

// RevealFunc adapts a function to Revealer.
type RevealFunc func(ctx context.Context, index int) error

// Reveal calls f.
func (f RevealFunc) Reveal(ctx context.Context, index int) error {
	return f(ctx, index)
}

// RateSource reports the current words-per-minute estimate, or 0 when
// there is none.
type RateSource interface {
	CurrentRate() float64
}

// FixedRate is a constant rate.
type FixedRate float64

// CurrentRate returns r.
func (r FixedRate) CurrentRate() float64 {
	return float64(r)
}

// LiveRate is a rate updated concurrently by the gaze tracker.
type LiveRate struct {
	v *atomic.Float64
}

// NewLiveRate returns a LiveRate starting at initial.
func NewLiveRate(initial float64) *LiveRate {
	return &LiveRate{v: atomic.NewFloat64(initial)}
}

// Set replaces the current rate.
func (r *LiveRate) Set(rate float64) {
	r.v.Store(rate)
}

// CurrentRate returns the latest rate.
func (r *LiveRate) CurrentRate() float64 {
	return r.v.Load()
}

// LineStarts holds the token indices that begin a visual line.
type LineStarts map[int]struct{}

// NewLineStarts builds a LineStarts from indices.
func NewLineStarts(indices ...int) LineStarts {
	ls := make(LineStarts, len(indices))
	for _, i := range indices {
		ls[i] = struct{}{}
	}
	return ls
}

// Has reports whether index starts a line.
func (ls LineStarts) Has(index int) bool {
	_, ok := ls[index]
	return ok
}

// Crosses reports whether the chunk wraps onto a new line, i.e. whether any
// token other than its first starts a line.
func (ls LineStarts) Crosses(chunk domain.Chunk) bool {
	if len(chunk) < 2 {
		return false
	}
	for _, t := range chunk[1:] {
		if ls.Has(t.OriginalIndex) {
			return true
		}
	}
	return false
}

// ChunkSource supplies a paragraph's chunks. An empty result means the
// content is not ready yet.
type ChunkSource interface {
	Chunks() []domain.Chunk
}

// StaticChunks is a ChunkSource over a fixed list. The scheduler never
// retries one.
type StaticChunks []domain.Chunk

// Chunks returns c.
func (c StaticChunks) Chunks() []domain.Chunk {
	return c
}

// ChunkSourceFunc adapts a function to ChunkSource.
type ChunkSourceFunc func() []domain.Chunk

// Chunks calls f.
func (f ChunkSourceFunc) Chunks() []domain.Chunk {
	return f()
}
