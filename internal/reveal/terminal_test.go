package reveal

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pricofy/reading-pacer/internal/domain"
	"github.com/pricofy/reading-pacer/internal/pacing"
)

func words(texts ...string) []domain.Token {
	tokens := make([]domain.Token, len(texts))
	for i, text := range texts {
		tokens[i] = domain.Token{Text: text, Pause: domain.PauseNone, OriginalIndex: i}
	}
	return tokens
}

func TestTerminal_Output(t *testing.T) {
	tokens := words("The", "quick", "brown", "fox", "jumps")
	chunks := []domain.Chunk{tokens[0:3], tokens[3:5]}

	tests := []struct {
		name     string
		starts   pacing.LineStarts
		expected string
	}{
		{name: "single line", starts: pacing.NewLineStarts(0), expected: "The quick brown fox jumps"},
		{name: "wrap inside chunk", starts: pacing.NewLineStarts(0, 2), expected: "The quick\nbrown fox jumps"},
		{name: "wrap at chunk start", starts: pacing.NewLineStarts(0, 3), expected: "The quick brown\nfox jumps"},
		{name: "no layout", starts: nil, expected: "The quick brown fox jumps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			term := NewTerminal(&buf, chunks, tt.starts, 0, 0, nil)
			for i := range chunks {
				if err := term.Reveal(context.Background(), i); err != nil {
					t.Fatalf("Reveal(%d) error = %v", i, err)
				}
			}
			if buf.String() != tt.expected {
				t.Errorf("output = %q, want %q", buf.String(), tt.expected)
			}
		})
	}
}

func TestTerminal_LineBreakPause(t *testing.T) {
	tokens := words("The", "quick", "brown")
	chunks := []domain.Chunk{tokens}
	clock := clockwork.NewFakeClock()

	var buf bytes.Buffer
	term := NewTerminal(&buf, chunks, pacing.NewLineStarts(0, 2), 0, 450*time.Millisecond, clock)

	done := make(chan error, 1)
	go func() {
		done <- term.Reveal(context.Background(), 0)
	}()

	clock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("reveal finished before the line break pause elapsed")
	default:
	}

	clock.Advance(450 * time.Millisecond)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Reveal() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reveal did not finish")
	}

	if buf.String() != "The quick\nbrown" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTerminal_CancelDuringInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var buf bytes.Buffer
	term := NewTerminal(&buf, []domain.Chunk{words("one", "two")}, nil, time.Second, 0, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- term.Reveal(ctx, 0)
	}()

	clock.BlockUntil(1)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Reveal() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reveal ignored cancellation")
	}

	if buf.String() != "one" {
		t.Errorf("output = %q, want %q", buf.String(), "one")
	}
}

func TestTerminal_OutOfRange(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{}, nil, nil, 0, 0, nil)
	if err := term.Reveal(context.Background(), 0); err == nil {
		t.Error("expected error for missing chunk")
	}
}
