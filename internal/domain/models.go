// Package domain contains the core domain types for the reading pacer.
package domain

import (
	"errors"
	"strings"
)

// PauseStrength is how strong a natural reading pause follows a token.
type PauseStrength int

const (
	PauseNone   PauseStrength = 1
	PauseLight  PauseStrength = 2
	PausePhrase PauseStrength = 3
	// PauseHard marks a sentence or paragraph end. It always ends a chunk.
	PauseHard PauseStrength = 4
)

// Valid reports whether p is within 1..4.
func (p PauseStrength) Valid() bool {
	return p >= PauseNone && p <= PauseHard
}

var (
	ErrInvalidPause = errors.New("pause strength must be between 1 and 4")
	ErrEmptyToken   = errors.New("token text is required")
)

// Token is the atomic unit of paragraph text.
// The JSON shape matches the story content format ({"t": ..., "b": ...}).
type Token struct {
	Text          string        `json:"t" validate:"required"`
	Pause         PauseStrength `json:"b" validate:"min=1,max=4"`
	OriginalIndex int           `json:"originalIndex"`
}

// NewToken builds a token, rejecting empty text and out-of-range pauses.
func NewToken(text string, pause PauseStrength) (Token, error) {
	if text == "" {
		return Token{}, ErrEmptyToken
	}
	if !pause.Valid() {
		return Token{}, ErrInvalidPause
	}
	return Token{Text: text, Pause: pause}, nil
}

// Chunk is a non-empty contiguous run of tokens revealed together.
type Chunk []Token

// Len returns the number of words in the chunk.
func (c Chunk) Len() int {
	return len(c)
}

// Text joins the chunk's tokens with single spaces.
func (c Chunk) Text() string {
	parts := make([]string, len(c))
	for i, t := range c {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// StartIndex returns the paragraph position of the chunk's first token,
// or -1 for an empty chunk.
func (c Chunk) StartIndex() int {
	if len(c) == 0 {
		return -1
	}
	return c[0].OriginalIndex
}

// Flatten concatenates chunks back into the token sequence they came from.
func Flatten(chunks []Chunk) []Token {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	tokens := make([]Token, 0, n)
	for _, c := range chunks {
		tokens = append(tokens, c...)
	}
	return tokens
}

// Band classifies a target reading rate.
type Band string

const (
	BandLow  Band = "low"
	BandMid  Band = "mid"
	BandHigh Band = "high"
)
