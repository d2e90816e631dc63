package ingest

import (
	"regexp"
	"strings"
)

// sentenceRe splits after terminal punctuation followed by whitespace.
// Common abbreviations are protected before the split and restored after.
var sentenceRe = regexp.MustCompile(`([.!?])\s+`)

var abbreviations = []string{
	"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Sen.", "Rep.", "Gov.",
	"St.", "Jr.", "Sr.", "vs.", "etc.", "e.g.", "i.e.", "U.S.", "U.K.",
}

const minSentenceChars = 3

// SplitSentences breaks a block of prose into individual sentences.
// Whitespace is normalized and fragments shorter than a few characters
// are dropped.
func SplitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	protected := text
	for i, abbr := range abbreviations {
		protected = strings.ReplaceAll(protected, abbr, placeholder(i))
	}

	marked := sentenceRe.ReplaceAllString(protected, "$1\x00")

	var out []string
	for _, part := range strings.Split(marked, "\x00") {
		for i, abbr := range abbreviations {
			part = strings.ReplaceAll(part, placeholder(i), abbr)
		}
		part = strings.TrimSpace(part)
		if len(part) >= minSentenceChars {
			out = append(out, part)
		}
	}
	return out
}

func placeholder(i int) string {
	return "\x01" + string(rune('A'+i)) + "\x01"
}
