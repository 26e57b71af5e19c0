package search

import (
	"net/url"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Focus phrase of a step description: the text between "Search for" and a
// trailing "to ..." clause (or end of string).
var stepFocusPattern = regexp.MustCompile(`(?i)search for (.*?)(?:to |$)`)

// deriveStepQuery turns a step description into a concrete search query.
// A usable focus phrase is prepended to the original query; generic
// descriptions ("information about ...") fall back to the original query
// unchanged.
func deriveStepQuery(originalQuery string, step Step) string {
	m := stepFocusPattern.FindStringSubmatch(step.Description)
	if m == nil {
		return originalQuery
	}
	focus := strings.TrimSpace(m[1])
	if focus != "" && !strings.Contains(focus, "information about") {
		return focus + " " + originalQuery
	}
	return originalQuery
}

// cleanContent strips markup from raw page content so the entity
// extractor sees prose. Non-HTML content passes through untouched.
func cleanContent(raw, pageURL string) string {
	if !strings.Contains(raw, "<") {
		return raw
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(raw), u)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return raw
	}
	return strings.TrimSpace(article.TextContent)
}
