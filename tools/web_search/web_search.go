package web_search

import (
	"context"
	"net/http"

	"github.com/Wolverine971/bubble-search/config"
	"github.com/Wolverine971/bubble-search/tools/web_search/brave"
	"github.com/Wolverine971/bubble-search/tools/web_search/models"
	"github.com/Wolverine971/bubble-search/tools/web_search/serper"
	"github.com/Wolverine971/bubble-search/tools/web_search/tavily"
)

// Searcher runs one query against a web search provider.
type Searcher interface {
	Search(ctx context.Context, q string) (models.Response, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	BraveProvider  Provider = "brave"
	SerperProvider Provider = "serper"
)

var ErrUnsupportedProvider = &Error{"unsupported provider"}

type Error struct{ msg string }

func (e *Error) Error() string { return e.msg }

func NewSearcher(provider Provider, cfg config.SearchConfig) (Searcher, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch provider {
	case TavilyProvider, "":
		return tavily.Search{
			ApiKey:     cfg.TavilyAPIKey,
			BaseURL:    cfg.BaseURL,
			MaxResults: cfg.MaxResults,
			Client:     client,
		}, nil
	case BraveProvider:
		return brave.Search{
			ApiKey:     cfg.BraveAPIKey,
			MaxResults: cfg.MaxResults,
			Client:     client,
		}, nil
	case SerperProvider:
		return serper.Search{
			ApiKey:     cfg.SerperAPIKey,
			MaxResults: cfg.MaxResults,
			Client:     client,
		}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
