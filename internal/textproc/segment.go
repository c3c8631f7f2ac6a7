// Package textproc prepares mixed Devanagari/Latin text for single-pass
// voice-clone synthesis: it classifies tokens by script, rewrites text so
// the engine cannot re-split it internally, and plans streaming chunks on
// natural sentence boundaries.
package textproc

import (
	"strings"
	"unicode"
)

// Language tags understood by the synthesis engine.
const (
	LangHindi   = "hi"
	LangEnglish = "en"
)

// Token is one whitespace-delimited word with its script classification.
type Token struct {
	Text string
	Lang string
}

// Segment splits text into tokens and tags each one by script. A token
// containing any Devanagari code point is Hindi; otherwise any Latin letter
// makes it English; everything else (digits, bare punctuation) defaults to
// Hindi, matching the pipeline's Hindi-leaning bias for ambiguous input.
func Segment(text string) []Token {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	tokens := make([]Token, 0, len(fields))
	for _, word := range fields {
		tokens = append(tokens, Token{Text: word, Lang: classify(word)})
	}
	return tokens
}

// HindiRatio returns the fraction of tokens tagged Hindi, 0 for no tokens.
func HindiRatio(tokens []Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hindi := 0
	for _, tok := range tokens {
		if tok.Lang == LangHindi {
			hindi++
		}
	}
	return float64(hindi) / float64(len(tokens))
}

func classify(word string) string {
	hasLatin := false
	for _, r := range word {
		if unicode.Is(unicode.Devanagari, r) {
			return LangHindi
		}
		if unicode.Is(unicode.Latin, r) {
			hasLatin = true
		}
	}
	if hasLatin {
		return LangEnglish
	}
	return LangHindi
}
