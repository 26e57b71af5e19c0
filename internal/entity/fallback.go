package entity

import (
	"regexp"
	"strings"
)

// Regex-based extraction used whenever the spaCy backend is unreachable.
// Pattern families cover the labels the NER model would normally produce.
var fallbackPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	// People: capitalized two or three word names like "John Smith".
	{regexp.MustCompile(`\b(?:[A-Z][a-z]+ ){1,2}[A-Z][a-z]+\b`), "PERSON"},
	// Organizations with legal suffixes.
	{regexp.MustCompile(`\b(?:[A-Z][a-z]+ ){0,2}(?:Inc\.|Corp\.|LLC|Company|Ltd\.)`), "ORG"},
	// Institutions.
	{regexp.MustCompile(`\b(?:[A-Z][a-z]+ ){1,3}(?:Group|Association|University|College|Institute|Organization)\b`), "ORG"},
	// Place names, optionally "City, State" shaped.
	{regexp.MustCompile(`\b[A-Z][a-z]+(?:, [A-Z][a-z]+)?\b`), "LOC"},
	// Formatted dates like "January 15, 2023".
	{regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?) \d{1,2}(?:st|nd|rd|th)?,? \d{4}\b`), "DATE"},
	// Numeric dates like 01/15/2023.
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`), "DATE"},
	// Bare years.
	{regexp.MustCompile(`\b(?:19|20)\d{2}\b`), "DATE"},
	// Currency amounts with optional scale words.
	{regexp.MustCompile(`\$\d+(?:,\d+)*(?:\.\d+)?(?: ?(?:million|billion|trillion))?`), "MONEY"},
	// Percentages.
	{regexp.MustCompile(`\b\d+(?:\.\d+)?%`), "PERCENT"},
	// Email addresses.
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "EMAIL"},
	// URLs.
	{regexp.MustCompile(`https?://[^\s]+`), "URL"},
}

var miscWordPattern = regexp.MustCompile(`\b[A-Z][a-z]{3,}\b`)

// ExtractFallback performs deterministic regex-based entity extraction.
// Matches without at least one containing sentence are dropped. When fewer
// than five entities were found, lone capitalized words are added as MISC
// entities unless they are already part of a recognized entity.
func ExtractFallback(text string) []Entity {
	sentences := ExtractSentences(text)
	set := NewSet()

	for _, p := range fallbackPatterns {
		for _, match := range p.re.FindAllString(text, -1) {
			matching := sentencesContaining(sentences, match)
			if len(matching) == 0 {
				continue
			}
			set.Add(Entity{Text: match, Label: p.label, Sentences: matching})
		}
	}

	if set.Len() < 5 {
		known := set.Entities()
		for _, word := range miscWordPattern.FindAllString(text, -1) {
			if partOfKnownEntity(known, word) {
				continue
			}
			var matching []string
			for _, s := range sentences {
				if strings.Contains(s, word) {
					matching = append(matching, s)
				}
			}
			if len(matching) == 0 {
				continue
			}
			set.Add(Entity{Text: word, Label: "MISC", Sentences: matching})
		}
	}

	return set.Entities()
}

func partOfKnownEntity(known []Entity, word string) bool {
	for _, e := range known {
		if strings.Contains(e.Text, word) {
			return true
		}
	}
	return false
}
