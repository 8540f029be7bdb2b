package reveal

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pricofy/reading-pacer/internal/domain"
	"github.com/pricofy/reading-pacer/internal/pacing"
)

// Terminal types chunks onto a writer one word at a time.
type Terminal struct {
	w              io.Writer
	chunks         []domain.Chunk
	lineStarts     pacing.LineStarts
	interval       time.Duration
	lineBreakPause time.Duration
	clock          clockwork.Clock

	mu      sync.Mutex
	written bool
}

var _ pacing.Revealer = (*Terminal)(nil)

// NewTerminal creates a typewriter for one paragraph. interval is the delay
// after each word; lineBreakPause is added before a word that wraps a line
// in the middle of a chunk.
func NewTerminal(w io.Writer, chunks []domain.Chunk, lineStarts pacing.LineStarts, interval, lineBreakPause time.Duration, clock clockwork.Clock) *Terminal {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Terminal{
		w:              w,
		chunks:         chunks,
		lineStarts:     lineStarts,
		interval:       interval,
		lineBreakPause: lineBreakPause,
		clock:          clock,
	}
}

// Reveal types chunk index.
func (t *Terminal) Reveal(ctx context.Context, index int) error {
	if index < 0 || index >= len(t.chunks) {
		return fmt.Errorf("chunk %d out of range (%d chunks)", index, len(t.chunks))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, tok := range t.chunks[index] {
		sep := " "
		switch {
		case !t.written:
			sep = ""
		case t.lineStarts.Has(tok.OriginalIndex):
			sep = "\n"
			if i > 0 {
				if err := t.sleep(ctx, t.lineBreakPause); err != nil {
					return err
				}
			}
		}

		if _, err := io.WriteString(t.w, sep+tok.Text); err != nil {
			return fmt.Errorf("write token: %w", err)
		}
		t.written = true

		if err := t.sleep(ctx, t.interval); err != nil {
			return err
		}
	}
	return nil
}

func (t *Terminal) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := t.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
