package server

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Wolverine971/bubble-search/internal/entity"
	"github.com/Wolverine971/bubble-search/internal/search"
	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

// Test mode serves canned stages so the UI can be exercised without an LLM
// or a search provider behind it.

var testIntents = []struct {
	keyword string
	intent  string
}{
	{"how to", "Informational Intent"},
	{"what is", "Informational Intent"},
	{"who is", "Informational Intent"},
	{"where is", "Local Intent"},
	{"best", "Commercial Intent"},
	{"compare", "Comparative Intent"},
	{"vs", "Comparative Intent"},
	{"buy", "Transactional Intent"},
	{"purchase", "Transactional Intent"},
	{"near me", "Local Intent"},
	{"weather", "Specific Question Intent"},
	{"news", "News Intent"},
	{"login", "Navigational Intent"},
	{"sign in", "Navigational Intent"},
	{"download", "Transactional Intent"},
	{"images", "Visual Intent"},
	{"pictures", "Visual Intent"},
	{"video", "Video Intent"},
	{"games", "Entertainment Intent"},
}

func testIntent(query string) string {
	lower := strings.ToLower(query)
	for _, ti := range testIntents {
		if strings.Contains(lower, ti.keyword) {
			return ti.intent
		}
	}
	return "Informational Intent"
}

func stripKeywords(query string, keywords ...string) string {
	out := query
	for _, kw := range keywords {
		out = strings.ReplaceAll(strings.ToLower(out), kw, "")
	}
	return strings.TrimSpace(out)
}

func testSummary(query, intent string) string {
	switch intent {
	case "Informational Intent":
		return fmt.Sprintf("I'll find you information about %s.", stripKeywords(query, "what is", "how to", "who is"))
	case "Local Intent":
		return fmt.Sprintf("I'll locate %s in your area.", stripKeywords(query, "where is", "near me"))
	case "Commercial Intent":
		return fmt.Sprintf("I'll find the best %s options for you to consider.", stripKeywords(query, "best"))
	case "Comparative Intent":
		return fmt.Sprintf("I'll compare %s to help you make a decision.", stripKeywords(query, "compare", "vs"))
	case "Transactional Intent":
		return fmt.Sprintf("I'll help you %s.", stripKeywords(query, "buy", "purchase", "download"))
	case "News Intent":
		return fmt.Sprintf("I'll find the latest news about %s.", stripKeywords(query, "news"))
	case "Navigational Intent":
		return fmt.Sprintf("I'll take you to the %s page.", stripKeywords(query, "login", "sign in"))
	case "Visual Intent":
		return fmt.Sprintf("I'll show you images of %s.", stripKeywords(query, "images", "pictures"))
	case "Video Intent":
		return fmt.Sprintf("I'll find videos about %s.", stripKeywords(query, "video", "videos"))
	case "Entertainment Intent":
		return fmt.Sprintf("I'll find fun %s content for you.", stripKeywords(query, "games"))
	case "Specific Question Intent":
		return fmt.Sprintf("I'll get you a direct answer about %s.", query)
	default:
		return fmt.Sprintf("I'll search for information about %q.", query)
	}
}

func testPlan(query, intent string) []search.Step {
	lower := strings.ToLower(query)
	isComplex := len(lower) > 50 ||
		strings.Contains(lower, "compare") ||
		strings.Contains(lower, "vs") ||
		strings.Contains(lower, "between") ||
		strings.Contains(lower, "and")

	if isComplex {
		if intent == "Comparative Intent" {
			parts := splitComparison(lower)
			if len(parts) >= 2 {
				return []search.Step{
					{Description: fmt.Sprintf("Step 1: Search for information about %s", parts[0]), Mode: search.ModeParallel},
					{Description: fmt.Sprintf("Step 2: Search for information about %s", parts[1]), Mode: search.ModeParallel},
					{Description: fmt.Sprintf("Step 3: Find comparison data between %s and %s", parts[0], parts[1]), Mode: search.ModeParallel},
					{Description: "Step 4: Analyze the pros and cons of each option", Mode: search.ModeSequential},
				}
			}
		}
		if intent == "Commercial Intent" {
			topic := stripKeywords(query, "best")
			return []search.Step{
				{Description: fmt.Sprintf("Step 1: Search for top-rated %s options", topic), Mode: search.ModeParallel},
				{Description: "Step 2: Find pricing information for each option", Mode: search.ModeParallel},
				{Description: "Step 3: Look for recent reviews and customer feedback", Mode: search.ModeParallel},
				{Description: "Step 4: Compare features across different brands/models", Mode: search.ModeSequential},
			}
		}
		return []search.Step{
			{Description: "Step 1: Gather general information about the topic", Mode: search.ModeParallel},
			{Description: "Step 2: Find specific details related to key aspects", Mode: search.ModeParallel},
			{Description: "Step 3: Look for recent developments or updates", Mode: search.ModeSequential},
		}
	}

	if intent == "Specific Question Intent" {
		return []search.Step{
			{Description: "Step 1: Search for a direct answer to this specific question", Mode: search.ModeParallel},
		}
	}
	if intent == "Informational Intent" {
		return []search.Step{
			{Description: "Step 1: Find a comprehensive overview of the topic", Mode: search.ModeParallel},
			{Description: "Step 2: Gather specific details if needed", Mode: search.ModeParallel},
		}
	}
	return []search.Step{
		{Description: "Step 1: Search for relevant information about the query", Mode: search.ModeParallel},
	}
}

func splitComparison(lower string) []string {
	var parts []string
	for _, p := range splitAny(lower, []string{"compare", " vs ", "between", " and "}) {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func splitAny(s string, seps []string) []string {
	parts := []string{s}
	for _, sep := range seps {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	return parts
}

func testResults(query, intent string) ([]models.Result, string) {
	slug := url.QueryEscape(strings.ReplaceAll(query, " ", "-"))
	switch intent {
	case "Commercial Intent":
		topic := stripKeywords(query, "best")
		return []models.Result{
			{
				Title:   fmt.Sprintf("Top 10 %s of 2025 - Expert Reviews", topic),
				URL:     "https://www.reviewsite.com/best-" + slug,
				Content: fmt.Sprintf("Our comprehensive review of the top %s options available today. We tested dozens of products to find the best performers across all price ranges...", topic),
				Score:   0.94,
			},
			{
				Title:   fmt.Sprintf("%s Buying Guide - Consumer Reports", topic),
				URL:     "https://www.consumerreports.org/buying-guides/" + slug,
				Content: fmt.Sprintf("Before purchasing a %s, consider these important factors. Our testing revealed significant differences in performance, reliability, and value...", topic),
				Score:   0.89,
			},
		}, fmt.Sprintf("Based on current reviews and market analysis, the top options for %s include several highly-rated products across different price points. Most experts recommend considering factors like quality, features, and price when making your selection.", topic)
	case "Local Intent":
		topic := stripKeywords(query, "near me")
		return []models.Result{
			{
				Title:   fmt.Sprintf("Top-rated %s Near You - Google Maps", topic),
				URL:     "https://www.google.com/maps/search/" + slug,
				Content: fmt.Sprintf("Find the best %s near your location. Includes reviews, hours, directions, and additional information to help you choose...", topic),
				Score:   0.95,
			},
			{
				Title:   fmt.Sprintf("Local Guide to %s - Yelp", topic),
				URL:     "https://www.yelp.com/search?find_desc=" + slug,
				Content: fmt.Sprintf("Discover the highest-rated local %s with verified reviews from other customers. Filter by price, rating, hours, and more...", topic),
				Score:   0.91,
			},
		}, fmt.Sprintf("There are several highly-rated options for %s in your area. Most locations are open regular business hours and offer standard services. It's recommended to call ahead to confirm availability or make reservations if needed.", topic)
	case "News Intent":
		topic := stripKeywords(query, "news")
		return []models.Result{
			{
				Title:   fmt.Sprintf("Latest Updates on %s - CNN", topic),
				URL:     "https://www.cnn.com/search?q=" + slug,
				Content: fmt.Sprintf("Breaking news and analysis on recent developments related to %s. Our reporters provide in-depth coverage of this evolving story...", topic),
				Score:   0.96,
			},
			{
				Title:   fmt.Sprintf("%s Situation: What We Know - BBC", topic),
				URL:     "https://www.bbc.com/news/search?q=" + slug,
				Content: fmt.Sprintf("A comprehensive look at the current state of %s, including background information, recent developments, and expert analysis on what might happen next...", topic),
				Score:   0.93,
			},
		}, fmt.Sprintf("Recent news about %s includes several significant developments. Major news outlets have reported on events related to this topic in the past week, with updates continuing to emerge as the situation evolves.", topic)
	case "Informational Intent":
		return []models.Result{
			{
				Title:   fmt.Sprintf("Complete Guide to %s - Wikipedia", query),
				URL:     "https://en.wikipedia.org/wiki/" + slug,
				Content: fmt.Sprintf("%s is a term that refers to the study or implementation of specific concepts. It has origins dating back to various historical periods and has evolved significantly over time...", query),
				Score:   0.92,
			},
			{
				Title:   fmt.Sprintf("Understanding %s - Educational Resource", query),
				URL:     "https://www.example-education.com/" + slug,
				Content: fmt.Sprintf("A comprehensive explanation of %s, including key principles, applications, and recent developments in the field. This guide covers essential concepts...", query),
				Score:   0.87,
			},
		}, fmt.Sprintf("%s refers to a concept or topic that people often search for information about. In general terms, it involves key aspects that experts in the field consider important. Many resources provide detailed explanations and examples that can help deepen your understanding of this subject.", query)
	default:
		return []models.Result{
			{
				Title:   fmt.Sprintf("%s - Comprehensive Resource", query),
				URL:     "https://www.example.com/" + slug,
				Content: fmt.Sprintf("Everything you need to know about %s, including detailed explanations, examples, and practical applications in various contexts...", query),
				Score:   0.88,
			},
			{
				Title:   fmt.Sprintf("Exploring %s - In-depth Analysis", query),
				URL:     "https://www.example-research.org/analysis/" + slug,
				Content: fmt.Sprintf("A thorough examination of %s from multiple perspectives, highlighting key findings, challenges, and opportunities for further development or understanding...", query),
				Score:   0.85,
			},
		}, fmt.Sprintf("Based on available information, %s is a topic that has multiple aspects worth exploring. There are several reputable sources that provide details on this subject, covering different perspectives and applications.", query)
	}
}

func (h *SearchHandler) runTestSearch(stream *sseStream, query string) {
	intent := testIntent(query)
	stream.send("classifying", map[string]interface{}{"query": query, "intent": intent})

	querySummary := testSummary(query, intent)
	stream.send("summarizing", map[string]interface{}{
		"query": query, "intent": intent, "querySummary": querySummary,
	})

	plan := testPlan(query, intent)
	needsApproval := len(plan) > 2
	stream.send("planning", map[string]interface{}{
		"query": query, "intent": intent, "querySummary": querySummary,
		"searchPlan": plan, "needsApproval": needsApproval,
	})
	if needsApproval {
		return
	}

	results, answer := testResults(query, intent)
	payload := map[string]interface{}{
		"query": query, "intent": intent, "querySummary": querySummary,
		"searchPlan": plan, "needsApproval": false,
		"results": results, "answer": answer,
	}
	stream.send("searching", payload)
	stream.send("complete", payload)
}

var stepPrefixPattern = regexp.MustCompile(`Step \d+: Search for `)

func stripStepPrefix(desc string) string {
	out := stepPrefixPattern.ReplaceAllString(desc, "")
	return strings.Replace(out, "Find ", "", 1)
}

// runTestContinue simulates executing an approved plan: canned results per
// step, fake entities, and the same event sequence the engine streams.
func (h *SearchHandler) runTestContinue(stream *sseStream, query string, plan []search.Step) {
	stream.send("plan_approved", map[string]interface{}{
		"query": query, "searchPlan": plan, "needsApproval": false,
	})

	intent := testIntent(query)
	querySummary := testSummary(query, intent)

	stepResults := make([]search.StepResult, 0, len(plan))
	combined := entity.NewSet()
	for i, step := range plan {
		stream.send("executing_plan_step", map[string]interface{}{
			"currentStep": i + 1, "totalSteps": len(plan), "stepDescription": step,
		})

		stepQuery := strings.TrimSpace(query + " " + stripStepPrefix(step.Description))
		stream.send("step_query_generated", map[string]interface{}{
			"currentStep": i + 1, "totalSteps": len(plan),
			"stepDescription": step, "stepQuery": stepQuery,
		})

		results, answer := testResults(stepQuery, intent)
		entities := entity.FakeEntities(answer)
		stepResult := search.StepResult{
			Step:      step,
			StepIndex: i,
			Query:     stepQuery,
			Results:   results,
			Answer:    answer,
			Entities:  entities,
		}
		stepResults = append(stepResults, stepResult)
		combined.AddAll(entities)

		stream.send("step_completed", map[string]interface{}{
			"currentStep": i + 1, "totalSteps": len(plan), "stepResult": stepResult,
		})
	}

	var answer string
	if len(stepResults) > 0 {
		answer = stepResults[len(stepResults)-1].Answer
	}
	stream.send("analysis_complete", map[string]interface{}{
		"query":           query,
		"intent":          intent,
		"querySummary":    querySummary,
		"searchPlan":      plan,
		"results":         combineResults(stepResults, 5),
		"answer":          answer,
		"stepResults":     stepResults,
		"answerEntities":  combined.Entities(),
		"websiteAnalyses": buildWebsiteAnalyses(stepResults),
	})
}
