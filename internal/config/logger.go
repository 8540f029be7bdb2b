package config

import (
	"io"
	"log/slog"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// NewLogger returns a JSON logger writing to w. Unknown levels log at info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl, ok := levels[level]
	if !ok {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Logger is NewLogger for the settings' level.
func (s *Settings) Logger(w io.Writer) *slog.Logger {
	return NewLogger(s.LogLevel, w)
}
