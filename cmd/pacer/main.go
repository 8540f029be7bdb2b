// Package main is a terminal player that paces text at a reading rate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricofy/reading-pacer/internal/config"
	"github.com/pricofy/reading-pacer/internal/domain"
	"github.com/pricofy/reading-pacer/internal/layout"
	"github.com/pricofy/reading-pacer/internal/pacing"
	"github.com/pricofy/reading-pacer/internal/reveal"
	"github.com/pricofy/reading-pacer/internal/tokenizer"
)

type options struct {
	file     string
	wpm      float64
	ramp     float64
	width    int
	interval time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.file, "file", "", "text file to read (default stdin)")
	flag.Float64Var(&opts.wpm, "wpm", 200, "reading rate in words per minute")
	flag.Float64Var(&opts.ramp, "ramp", 0, "words per minute added after each paragraph")
	flag.IntVar(&opts.width, "width", 72, "line width in cells; 0 disables wrapping")
	flag.DurationVar(&opts.interval, "interval", 40*time.Millisecond, "typing delay per word")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := settings.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, settings, logger, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stdout)
			return
		}
		logger.Error("playback failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, settings *config.Settings, logger *slog.Logger, out io.Writer) error {
	text, err := readInput(opts.file)
	if err != nil {
		return err
	}

	rate := pacing.NewLiveRate(opts.wpm)
	for i, para := range tokenizer.Paragraphs(text) {
		if i > 0 {
			fmt.Fprint(out, "\n\n")
			rate.Set(rate.CurrentRate() + opts.ramp)
		}
		if err := playParagraph(ctx, para, rate, opts, settings, logger.With("paragraph", i), out); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)
	return nil
}

func playParagraph(ctx context.Context, para string, rate *pacing.LiveRate, opts options, settings *config.Settings, logger *slog.Logger, out io.Writer) error {
	tokens := tokenizer.Tokenize(para)
	if len(tokens) == 0 {
		return nil
	}

	chunks := settings.Bands.Chunk(tokens, settings.Pacing.EffectiveRate(rate.CurrentRate()))
	lineStarts := pacing.NewLineStarts(layout.StartIndices(layout.Wrap(domain.Flatten(chunks), opts.width))...)

	term := reveal.NewTerminal(out, chunks, lineStarts, opts.interval, settings.Pacing.LineBreakPause, nil)
	sched := pacing.New(term, rate, lineStarts,
		pacing.WithConfig(settings.Pacing),
		pacing.WithLogger(logger),
	)
	if err := sched.StartParagraph(ctx, chunks); err != nil {
		return err
	}
	<-sched.Done()
	return sched.Err()
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}
