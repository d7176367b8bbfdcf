// Package segmenter splits a text block into translation-unit sentences
// using the sentence-final punctuation of the block's source language.
package segmenter

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Source language tags with splitting rules.
const (
	English = "en"
	Hindi   = "hi"
)

// rule describes where a sentence ends for one language.
type rule struct {
	// terminal reports whether r closes a sentence.
	terminal func(r rune) bool
	// needSpace requires at least one whitespace rune after the terminal.
	needSpace bool
}

var rules = map[string]rule{
	English: {
		terminal:  func(r rune) bool { return r == '.' || r == '?' || r == '!' },
		needSpace: true,
	},
	// Devanagari boundaries need not be followed by a space.
	Hindi: {
		terminal:  func(r rune) bool { return r == '।' || r == '|' || r == '?' || r == '!' },
		needSpace: false,
	},
}

// Supported reports whether lang has splitting rules.
func Supported(lang string) bool {
	_, ok := rules[lang]
	return ok
}

// Split returns the sentences of text in order. Every yielded sentence is
// trimmed and non-empty; terminal punctuation stays with the sentence it
// closes. For a language without rules the trimmed block is yielded once.
func Split(text, lang string) iter.Seq[string] {
	return func(yield func(string) bool) {
		emit := func(s string) bool {
			s = strings.TrimSpace(s)
			if s == "" {
				return true
			}
			return yield(s)
		}

		rl, ok := rules[lang]
		if !ok {
			emit(text)
			return
		}

		start := 0
		for i, r := range text {
			if i < start || !rl.terminal(r) {
				continue
			}
			end := i + utf8.RuneLen(r)
			next := skipSpace(text, end)
			if rl.needSpace && next == end {
				continue
			}
			if !emit(text[start:end]) {
				return
			}
			start = next
		}
		emit(text[start:])
	}
}

// Sentences collects Split into a slice. A block that yields no sentence is
// returned as its own single sentence so callers always have one unit to
// translate.
func Sentences(text, lang string) []string {
	var out []string
	for s := range Split(text, lang) {
		out = append(out, s)
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return out
}

// skipSpace returns the byte offset of the first non-space rune at or after
// from.
func skipSpace(text string, from int) int {
	for from < len(text) {
		r, size := utf8.DecodeRuneInString(text[from:])
		if !unicode.IsSpace(r) {
			break
		}
		from += size
	}
	return from
}
