package research

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Searcher issues web searches. The production implementation uses
// Google Custom Search; tests substitute a scripted one.
type Searcher interface {
	Search(ctx context.Context, query string, num int) ([]SearchHit, error)
}

// GoogleSearcher searches via the Google Custom Search API.
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearcher creates a searcher backed by a custom search engine.
func NewGoogleSearcher(ctx context.Context, apiKey, cx string) (*GoogleSearcher, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{
		svc: svc,
		cx:  cx,
	}, nil
}

// Search returns up to num hits for the query.
func (s *GoogleSearcher) Search(ctx context.Context, query string, num int) ([]SearchHit, error) {
	if num <= 0 {
		num = 5
	}
	resp, err := s.svc.Cse.List().Context(ctx).Cx(s.cx).Q(query).Num(int64(num)).Do()
	if err != nil {
		return nil, fmt.Errorf("search failed for %q: %w", query, err)
	}

	hits := make([]SearchHit, 0, len(resp.Items))
	for _, item := range resp.Items {
		hits = append(hits, SearchHit{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
		})
	}
	return hits, nil
}
