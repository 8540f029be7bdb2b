// Package tokenizer turns plain paragraph text into pause-annotated tokens.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/sentences"

	"github.com/pricofy/reading-pacer/internal/domain"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// abbreviations end in a period without ending the sentence.
var abbreviations = map[string]struct{}{
	"mr.": {}, "mrs.": {}, "ms.": {}, "dr.": {}, "st.": {}, "jr.": {}, "sr.": {},
	"prof.": {}, "vs.": {}, "e.g.": {}, "i.e.": {},
}

// Paragraphs splits a document on blank lines, dropping empty paragraphs.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Tokenize splits a paragraph into words and assigns each a pause strength
// from its trailing punctuation. Sentence ends and the paragraph's final
// word get PauseHard.
func Tokenize(text string) []domain.Token {
	var tokens []domain.Token

	for _, sentence := range sentences.SegmentAll([]byte(text)) {
		words := strings.Fields(string(sentence))
		for i, w := range words {
			pause := wordPause(w)
			switch {
			case isAbbreviation(w):
				// Segmentation breaks after "Mr." before a capital.
				pause = domain.PauseLight
			case i == len(words)-1 && endsSentence(w):
				pause = domain.PauseHard
			case pause == domain.PauseHard:
				pause = domain.PauseLight
			}
			tok, err := domain.NewToken(w, pause)
			if err != nil {
				continue
			}
			tok.OriginalIndex = len(tokens)
			tokens = append(tokens, tok)
		}
	}

	if n := len(tokens); n > 0 {
		tokens[n-1].Pause = domain.PauseHard
	}
	return tokens
}

// trimClosers drops closing quotes and brackets so "dog." and "dog.”" look alike.
func trimClosers(w string) string {
	return strings.TrimRight(w, `"')]}”’»`)
}

func lastRune(w string) rune {
	r, _ := utf8.DecodeLastRuneInString(trimClosers(w))
	return r
}

func isAbbreviation(w string) bool {
	_, ok := abbreviations[strings.ToLower(strings.TrimLeft(w, `"'([{“‘«`))]
	return ok
}

func endsSentence(w string) bool {
	switch lastRune(w) {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func wordPause(w string) domain.PauseStrength {
	switch lastRune(w) {
	case '.', '!', '?', '…':
		return domain.PauseHard
	case ';', ':', '—', '–':
		return domain.PausePhrase
	case ',':
		return domain.PauseLight
	}
	return domain.PauseNone
}
