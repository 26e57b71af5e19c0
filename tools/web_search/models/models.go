package models

// Result is a single web search hit.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	RawContent string  `json:"raw_content,omitempty"`
}

// Response is what a search provider returns for one query: ranked hits
// plus the provider's own short answer when it offers one.
type Response struct {
	Results []Result `json:"results"`
	Answer  string   `json:"answer"`
}
