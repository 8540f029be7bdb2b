// Package handler provides the Lambda handler for the reading pacer.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/xid"

	"github.com/pricofy/reading-pacer/internal/config"
	"github.com/pricofy/reading-pacer/internal/domain"
	"github.com/pricofy/reading-pacer/internal/layout"
	"github.com/pricofy/reading-pacer/internal/pacing"
	"github.com/pricofy/reading-pacer/internal/reveal"
	"github.com/pricofy/reading-pacer/internal/tokenizer"
)

const (
	// ModePlan returns the chunk plan without waiting.
	ModePlan = "plan"
	// ModePlay also runs the scheduler and reports its timeline.
	ModePlay = "play"
)

// Request is the input to the reading pacer.
// Exactly one of Text or Tokens carries the paragraph.
type Request struct {
	ParagraphID string         `json:"paragraphId,omitempty"`
	Text        string         `json:"text,omitempty" validate:"excluded_with=Tokens"`
	Tokens      []domain.Token `json:"tokens,omitempty" validate:"omitempty,dive"`
	WPM         float64        `json:"wpm"`
	LineWidth   int            `json:"lineWidth,omitempty" validate:"gte=0"`
	Mode        string         `json:"mode,omitempty" validate:"omitempty,oneof=plan play"`
}

// ChunkPlan describes one chunk and its timing, assuming an instant reveal.
type ChunkPlan struct {
	Index      int            `json:"index"`
	Text       string         `json:"text"`
	Tokens     []domain.Token `json:"tokens"`
	StartIndex int            `json:"startIndex"`
	Words      int            `json:"words"`
	TargetMs   int64          `json:"targetMs"`
	WaitMs     int64          `json:"waitMs"`
	LineBreak  bool           `json:"lineBreak,omitempty"`
}

// RevealRecord is one entry of a played paragraph's timeline.
type RevealRecord struct {
	Index     int   `json:"index"`
	StartMs   int64 `json:"startMs"`
	ElapsedMs int64 `json:"elapsedMs"`
	WaitMs    int64 `json:"waitMs"`
	ExpireMs  int64 `json:"expireMs,omitempty"`
	LineBreak bool  `json:"lineBreak,omitempty"`
	TimedOut  bool  `json:"timedOut,omitempty"`
}

// Response is the output from the reading pacer.
type Response struct {
	PlaybackID   string         `json:"playbackId,omitempty"`
	ParagraphID  string         `json:"paragraphId,omitempty"`
	Band         domain.Band    `json:"band,omitempty"`
	Rate         float64        `json:"rate,omitempty"`
	Chunks       []ChunkPlan    `json:"chunks,omitempty"`
	TotalMs      int64          `json:"totalMs,omitempty"`
	EffectiveWPM float64        `json:"effectiveWpm,omitempty"`
	Timeline     []RevealRecord `json:"timeline,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Option configures a Handler.
type Option func(*Handler)

// WithInvoker sets the Lambda client used by play mode. Without it a client
// is created from the default AWS config on first use.
func WithInvoker(inv reveal.Invoker) Option {
	return func(h *Handler) {
		h.invoker = inv
	}
}

// WithClock sets the clock the play mode scheduler runs on.
func WithClock(clock clockwork.Clock) Option {
	return func(h *Handler) {
		h.clock = clock
	}
}

// Handler serves plan and play requests.
type Handler struct {
	settings *config.Settings
	logger   *slog.Logger
	clock    clockwork.Clock

	invokerOnce sync.Once
	invoker     reveal.Invoker
	invokerErr  error
}

// New creates a Handler. A nil logger uses slog.Default.
func New(settings *config.Settings, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		settings: settings,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle processes a pacing request.
func (h *Handler) Handle(ctx context.Context, req Request) (*Response, error) {
	// Validate request
	if err := validateRequest(req); err != nil {
		return &Response{Error: err.Error()}, nil
	}

	tokens := req.Tokens
	if tokens == nil {
		tokens = tokenizer.Tokenize(req.Text)
	}

	// Empty input - return immediately
	if len(tokens) == 0 {
		return &Response{ParagraphID: req.ParagraphID, Chunks: []ChunkPlan{}}, nil
	}

	pacingCfg := h.settings.Pacing
	rate := pacingCfg.EffectiveRate(req.WPM)
	chunks := h.settings.Bands.Chunk(tokens, rate)

	var lineStarts pacing.LineStarts
	if req.LineWidth > 0 {
		lineStarts = pacing.NewLineStarts(layout.StartIndices(layout.Wrap(domain.Flatten(chunks), req.LineWidth))...)
	}

	resp := plan(chunks, lineStarts, rate, pacingCfg)
	resp.ParagraphID = req.ParagraphID
	resp.Band = h.settings.Bands.BandFor(rate)

	if req.Mode != ModePlay {
		return resp, nil
	}
	return h.play(ctx, req, resp, chunks, lineStarts)
}

// plan computes per-chunk timing without revealing anything.
func plan(chunks []domain.Chunk, lineStarts pacing.LineStarts, rate float64, cfg pacing.Config) *Response {
	resp := &Response{
		Rate:   rate,
		Chunks: make([]ChunkPlan, len(chunks)),
	}

	var total time.Duration
	words := 0
	for i, c := range chunks {
		target := pacing.TargetDuration(rate, c.Len())
		lineBreak := lineStarts.Crosses(c)
		resp.Chunks[i] = ChunkPlan{
			Index:      i,
			Text:       c.Text(),
			Tokens:     c,
			StartIndex: c.StartIndex(),
			Words:      c.Len(),
			TargetMs:   target.Milliseconds(),
			WaitMs:     pacing.RemainingWait(target, 0, lineBreak, cfg.LineBreakPause).Milliseconds(),
			LineBreak:  lineBreak,
		}
		total += target
		words += c.Len()
	}

	resp.TotalMs = total.Milliseconds()
	if total > 0 {
		resp.EffectiveWPM = float64(words) / total.Minutes()
	}
	return resp
}

// play reveals the paragraph through the rendering Lambda and records when
// each chunk was shown.
func (h *Handler) play(ctx context.Context, req Request, resp *Response, chunks []domain.Chunk, lineStarts pacing.LineStarts) (*Response, error) {
	inv, err := h.getInvoker(ctx)
	if err != nil {
		resp.Error = fmt.Sprintf("failed to create lambda client: %v", err)
		return resp, nil
	}

	resp.PlaybackID = xid.New().String()
	logger := h.logger.With("playbackId", resp.PlaybackID, "paragraphId", req.ParagraphID)

	revealer := reveal.NewLambda(inv, h.settings.RenderFunction, resp.PlaybackID, req.ParagraphID, chunks, h.settings.Pacing.LineBreakPause)
	tl := &timeline{start: h.clock.Now()}

	sched := pacing.New(revealer, pacing.FixedRate(resp.Rate), lineStarts,
		pacing.WithConfig(h.settings.Pacing),
		pacing.WithClock(h.clock),
		pacing.WithLogger(logger),
		pacing.WithObserver(tl.observe),
	)
	if err := sched.StartParagraph(ctx, chunks); err != nil {
		resp.Error = fmt.Sprintf("failed to start playback: %v", err)
		return resp, nil
	}

	<-sched.Done()

	resp.Timeline = tl.records
	if err := sched.Err(); err != nil {
		logger.Warn("playback interrupted", "revealed", len(tl.records), "error", err)
		resp.Error = fmt.Sprintf("playback interrupted: %v", err)
		return resp, nil
	}

	logger.Info("playback complete", "chunks", len(chunks), "rate", resp.Rate)
	return resp, nil
}

func (h *Handler) getInvoker(ctx context.Context) (reveal.Invoker, error) {
	h.invokerOnce.Do(func() {
		if h.invoker != nil {
			return
		}
		h.invoker, h.invokerErr = reveal.NewLambdaClient(ctx)
	})
	return h.invoker, h.invokerErr
}

// timeline collects reveal records from scheduler events. The scheduler
// serializes observer calls and makes none after Done.
type timeline struct {
	start   time.Time
	records []RevealRecord
}

func (t *timeline) observe(ev pacing.Event) {
	switch ev.Kind {
	case pacing.EventReveal:
		t.records = append(t.records, RevealRecord{
			Index:   ev.Index,
			StartMs: ev.At.Sub(t.start).Milliseconds(),
		})
	case pacing.EventWait:
		if n := len(t.records); n > 0 && t.records[n-1].Index == ev.Index {
			r := &t.records[n-1]
			r.ElapsedMs = ev.Elapsed.Milliseconds()
			r.WaitMs = ev.Wait.Milliseconds()
			r.LineBreak = ev.LineBreak
			r.TimedOut = ev.TimedOut
		}
	case pacing.EventExpire:
		for i := range t.records {
			if t.records[i].Index == ev.Index {
				t.records[i].ExpireMs = ev.At.Sub(t.start).Milliseconds()
				break
			}
		}
	}
}
