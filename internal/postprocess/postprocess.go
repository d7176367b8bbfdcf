// Package postprocess normalises text at the two edges of the pipeline:
// unit text leaving the source document and translated text returned by a
// translation service.
//
// Both must fit on a single line of a block dump, so line breaks never
// survive either function.
package postprocess

import (
	"regexp"
	"strings"
)

// Flatten collapses every line break in text into a single space and trims
// the result. It is applied to paragraph and cell text at extraction time.
func Flatten(text string) string {
	return strings.TrimSpace(lineBreakRe.ReplaceAllString(text, " "))
}

// Clean prepares raw service output for reassembly, in three phases:
//  1. Control character removal
//  2. Line break flattening
//  3. Quote wrapping removal, unless the source itself was wrapped
func Clean(source, translated string) string {
	text := removeControl(translated)
	text = Flatten(text)
	if !isWrapped(strings.TrimSpace(source)) {
		text = removeQuoteWrapping(text)
	}
	return strings.TrimSpace(text)
}

// --- Phase 1: control characters ---

// controlRe matches C0 controls other than tab and line breaks, DEL and the
// byte order mark. ZWJ and ZWNJ are kept: Devanagari shaping depends on them.
var controlRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F\x{FEFF}]`)

func removeControl(text string) string {
	return controlRe.ReplaceAllString(text, "")
}

// --- Phase 2: line breaks ---

var lineBreakRe = regexp.MustCompile(`\r\n|\r|\n|\x{2028}|\x{2029}`)

// --- Phase 3: quote wrapping ---

// quotePairs lists the outer quote pairs some services add around a
// translated sentence.
var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'«', '»'},
	{'\u201C', '\u201D'},
	{'\u2018', '\u2019'},
}

func isWrapped(text string) bool {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return false
	}
	for _, p := range quotePairs {
		if runes[0] == p[0] && runes[n-1] == p[1] {
			return true
		}
	}
	return false
}

func removeQuoteWrapping(text string) string {
	if !isWrapped(text) {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[1 : len(runes)-1]))
}
