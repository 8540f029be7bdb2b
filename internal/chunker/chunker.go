// Package chunker groups paragraph tokens into reveal chunks by reading rate.
package chunker

import (
	"errors"
	"fmt"
	"math"

	"github.com/pricofy/reading-pacer/internal/domain"
)

// Rule breaks a chunk once it holds at least MinLen tokens and the current
// token's pause is at least MinPause.
type Rule struct {
	MinLen   int                  `yaml:"minLen"`
	MinPause domain.PauseStrength `yaml:"minPause"`
}

// BandRules are the segmentation thresholds for one rate band.
type BandRules struct {
	// HardLimit is the largest chunk the band allows.
	HardLimit int    `yaml:"hardLimit"`
	Rules     []Rule `yaml:"rules"`
}

// Profile maps rates to bands and bands to thresholds.
type Profile struct {
	// Rates below LowBelow are low; rates at or above HighFrom are high.
	LowBelow float64   `yaml:"lowBelow"`
	HighFrom float64   `yaml:"highFrom"`
	Low      BandRules `yaml:"low"`
	Mid      BandRules `yaml:"mid"`
	High     BandRules `yaml:"high"`
}

// DefaultProfile returns the tuned thresholds.
// Slow readers get fewer, larger chunks; fast readers get finer ones.
func DefaultProfile() Profile {
	return Profile{
		LowBelow: 150,
		HighFrom: 250,
		Low: BandRules{
			HardLimit: 4,
			Rules:     []Rule{{MinLen: 2, MinPause: domain.PauseNone}},
		},
		Mid: BandRules{
			HardLimit: 5,
			Rules: []Rule{
				{MinLen: 3, MinPause: domain.PauseLight},
				{MinLen: 2, MinPause: domain.PausePhrase},
			},
		},
		High: BandRules{
			HardLimit: 7,
			Rules: []Rule{
				{MinLen: 4, MinPause: domain.PauseLight},
				{MinLen: 3, MinPause: domain.PausePhrase},
			},
		},
	}
}

// ErrInvalidProfile is wrapped by every Profile.Validate failure.
var ErrInvalidProfile = errors.New("invalid chunking profile")

// Validate checks that the profile's thresholds are usable.
func (p Profile) Validate() error {
	if p.LowBelow > p.HighFrom {
		return fmt.Errorf("%w: lowBelow %.0f exceeds highFrom %.0f", ErrInvalidProfile, p.LowBelow, p.HighFrom)
	}
	for band, rules := range map[domain.Band]BandRules{
		domain.BandLow:  p.Low,
		domain.BandMid:  p.Mid,
		domain.BandHigh: p.High,
	} {
		if rules.HardLimit < 1 {
			return fmt.Errorf("%w: %s hardLimit must be at least 1", ErrInvalidProfile, band)
		}
		for _, r := range rules.Rules {
			if r.MinLen < 1 {
				return fmt.Errorf("%w: %s rule minLen must be at least 1", ErrInvalidProfile, band)
			}
			if !r.MinPause.Valid() {
				return fmt.Errorf("%w: %s rule minPause must be between 1 and 4", ErrInvalidProfile, band)
			}
		}
	}
	return nil
}

// BandFor classifies wpm. Non-positive and NaN rates are low.
func (p Profile) BandFor(wpm float64) domain.Band {
	switch {
	case math.IsNaN(wpm) || wpm <= 0 || wpm < p.LowBelow:
		return domain.BandLow
	case wpm < p.HighFrom:
		return domain.BandMid
	default:
		return domain.BandHigh
	}
}

func (p Profile) rules(band domain.Band) BandRules {
	switch band {
	case domain.BandLow:
		return p.Low
	case domain.BandHigh:
		return p.High
	default:
		return p.Mid
	}
}

// Chunk splits tokens with the default profile.
func Chunk(tokens []domain.Token, wpm float64) []domain.Chunk {
	return DefaultProfile().Chunk(tokens, wpm)
}

// Chunk splits tokens into chunks in a single greedy pass.
// A hard pause always ends a chunk, then the band's rules apply, and the
// last token flushes whatever is buffered. Each returned token carries its
// position in tokens as OriginalIndex.
func (p Profile) Chunk(tokens []domain.Token, wpm float64) []domain.Chunk {
	if len(tokens) == 0 {
		return nil
	}

	band := p.rules(p.BandFor(wpm))

	var chunks []domain.Chunk
	var current domain.Chunk

	for i, token := range tokens {
		token.OriginalIndex = i
		current = append(current, token)

		shouldBreak := token.Pause == domain.PauseHard ||
			band.shouldBreak(len(current), token.Pause) ||
			i == len(tokens)-1

		if shouldBreak && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
		}
	}

	return chunks
}

func (b BandRules) shouldBreak(length int, pause domain.PauseStrength) bool {
	if length >= b.HardLimit {
		return true
	}
	for _, r := range b.Rules {
		if length >= r.MinLen && pause >= r.MinPause {
			return true
		}
	}
	return false
}
