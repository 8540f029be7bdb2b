package pacing

import (
	"errors"
	"math"
	"time"
)

// Config holds the scheduler's tunables.
type Config struct {
	// DefaultRate replaces a missing or unrealistic rate.
	DefaultRate float64 `yaml:"defaultRate"`
	// MinRate is the unrealistic-rate floor: rates at or below it are
	// replaced by DefaultRate.
	MinRate float64 `yaml:"minRate"`
	// LineBreakPause is the pause the renderer adds when a chunk wraps onto a
	// new line. Renderers must read it from here.
	LineBreakPause time.Duration `yaml:"lineBreakPause"`
	// RetryDelay is how long to wait before asking for chunks again.
	RetryDelay time.Duration `yaml:"retryDelay"`
	// MaxRetries bounds the retries for missing content; zero retries forever.
	MaxRetries int `yaml:"maxRetries"`
	// TimeoutSlack is added to a chunk's target duration to bound its reveal.
	TimeoutSlack time.Duration `yaml:"timeoutSlack"`
	// ChunkLifetime is how long a revealed chunk stays before it expires;
	// zero keeps chunks until the paragraph ends.
	ChunkLifetime time.Duration `yaml:"chunkLifetime"`
	// SettleDelay is held after the final chunk's wait before completion.
	SettleDelay time.Duration `yaml:"settleDelay"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		DefaultRate:    150,
		MinRate:        30,
		LineBreakPause: 450 * time.Millisecond,
		RetryDelay:     500 * time.Millisecond,
		MaxRetries:     0,
		TimeoutSlack:   time.Second,
		ChunkLifetime:  3 * time.Second,
		SettleDelay:    0,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case !(c.DefaultRate > 0) || math.IsInf(c.DefaultRate, 0):
		return errors.New("defaultRate must be positive")
	case c.MinRate < 0:
		return errors.New("minRate must not be negative")
	case c.LineBreakPause < 0:
		return errors.New("lineBreakPause must not be negative")
	case c.RetryDelay <= 0:
		return errors.New("retryDelay must be positive")
	case c.MaxRetries < 0:
		return errors.New("maxRetries must not be negative")
	case c.TimeoutSlack < 0:
		return errors.New("timeoutSlack must not be negative")
	case c.ChunkLifetime < 0:
		return errors.New("chunkLifetime must not be negative")
	case c.SettleDelay < 0:
		return errors.New("settleDelay must not be negative")
	}
	return nil
}

// EffectiveRate returns rate, or DefaultRate when rate is unavailable or
// not above MinRate.
func (c Config) EffectiveRate(rate float64) float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= c.MinRate {
		return c.DefaultRate
	}
	return rate
}
