package entity

import (
	"strings"
	"unicode"
)

// ExtractSentences splits text into trimmed sentences. A sentence ends at
// '.', '!' or '?' followed by whitespace; trailing text without a
// terminator is kept as a final sentence.
func ExtractSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// sentencesContaining returns the sentences whose lowercased form contains
// the lowercased needle.
func sentencesContaining(sentences []string, needle string) []string {
	lower := strings.ToLower(needle)
	var out []string
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s), lower) {
			out = append(out, s)
		}
	}
	return out
}
