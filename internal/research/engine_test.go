package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/fetch"
	"github.com/haruki/slidegen/internal/llm"
)

// MockSearcher implements Searcher for testing
type MockSearcher struct {
	SearchFunc func(ctx context.Context, query string, num int) ([]SearchHit, error)
	Queries    []string
}

func (m *MockSearcher) Search(ctx context.Context, query string, num int) ([]SearchHit, error) {
	m.Queries = append(m.Queries, query)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, num)
	}
	return nil, nil
}

// MockFetcher implements Fetcher for testing
type MockFetcher struct {
	FetchTypedFunc func(ctx context.Context, urlStr string, sourceType *string) (*fetch.CachedResult, error)
}

func (m *MockFetcher) FetchTyped(ctx context.Context, urlStr string, sourceType *string) (*fetch.CachedResult, error) {
	if m.FetchTypedFunc != nil {
		return m.FetchTypedFunc(ctx, urlStr, sourceType)
	}
	return nil, errors.New("not configured")
}

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string { return "mock-model" }
func (m *MockLLMClient) Close() error                       { return nil }

func pageText(n int) string {
	return strings.Repeat("Relevant topic material. ", n)
}

func fetchedResult(url, text string) *fetch.CachedResult {
	return &fetch.CachedResult{
		Result: &fetch.Result{
			URL:  url,
			Text: text,
		},
	}
}

func TestEngine_Research_CollectsAndRanksSources(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, query string, _ int) ([]SearchHit, error) {
			return []SearchHit{
				{URL: "https://en.wikipedia.org/wiki/Topic", Title: "Wiki article", Snippet: "Overview."},
				{URL: "https://example.com/blog", Title: "Some blog", Snippet: "Opinions."},
			}, nil
		},
	}
	fetcher := &MockFetcher{
		FetchTypedFunc: func(_ context.Context, urlStr string, _ *string) (*fetch.CachedResult, error) {
			return fetchedResult(urlStr, pageText(30)), nil
		},
	}

	engine := NewEngine(searcher, fetcher, nil, Options{MaxSources: 2})
	result, err := engine.Research(context.Background(), "Topic", "medium")

	require.NoError(t, err)
	require.Len(t, result.Sources, 2)
	assert.False(t, result.Synthetic)

	// Wikipedia outranks the generic blog
	assert.Equal(t, "src_001", result.Sources[0].ID)
	assert.Equal(t, "Wiki article", result.Sources[0].Title)
	assert.Equal(t, "encyclopedia", result.Sources[0].SourceType)
	assert.Equal(t, "src_002", result.Sources[1].ID)

	// Snippet fallback summary cites source ids
	assert.Contains(t, result.Summary, "[src_001]")
}

func TestEngine_Research_SkipsFailedFetches(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, _ string, _ int) ([]SearchHit, error) {
			return []SearchHit{
				{URL: "https://en.wikipedia.org/wiki/A", Title: "A"},
				{URL: "https://example.com/b", Title: "B", Snippet: "works"},
			}, nil
		},
	}
	fetcher := &MockFetcher{
		FetchTypedFunc: func(_ context.Context, urlStr string, _ *string) (*fetch.CachedResult, error) {
			if strings.Contains(urlStr, "wikipedia") {
				return nil, errors.New("connection refused")
			}
			return fetchedResult(urlStr, pageText(30)), nil
		},
	}

	engine := NewEngine(searcher, fetcher, nil, Options{})
	result, err := engine.Research(context.Background(), "Topic", "medium")

	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "B", result.Sources[0].Title)
}

func TestEngine_Research_TooLittleTextSkipped(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, _ string, _ int) ([]SearchHit, error) {
			return []SearchHit{{URL: "https://example.com/thin", Title: "Thin"}}, nil
		},
	}
	fetcher := &MockFetcher{
		FetchTypedFunc: func(_ context.Context, urlStr string, _ *string) (*fetch.CachedResult, error) {
			return fetchedResult(urlStr, "hardly anything"), nil
		},
	}

	engine := NewEngine(searcher, fetcher, nil, Options{})
	_, err := engine.Research(context.Background(), "Topic", "medium")
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestEngine_Research_NoHits(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, _ string, _ int) ([]SearchHit, error) {
			return nil, nil
		},
	}

	engine := NewEngine(searcher, &MockFetcher{}, nil, Options{})
	_, err := engine.Research(context.Background(), "Topic", "medium")
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestEngine_Research_LLMQueriesAndSummary(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			if strings.Contains(prompt, "knowledge gaps") {
				return `[]`, nil
			}
			return `["planned query one", "planned query two"]`, nil
		},
		GenerateContentFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			assert.Contains(t, prompt, "[src_001]")
			return "Condensed summary citing [src_001].", nil
		},
	}
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, _ string, _ int) ([]SearchHit, error) {
			return []SearchHit{{URL: "https://example.com/a", Title: "A", Snippet: "s"}}, nil
		},
	}
	fetcher := &MockFetcher{
		FetchTypedFunc: func(_ context.Context, urlStr string, _ *string) (*fetch.CachedResult, error) {
			return fetchedResult(urlStr, pageText(30)), nil
		},
	}

	engine := NewEngine(searcher, fetcher, client, Options{QueryCount: 2})
	result, err := engine.Research(context.Background(), "Topic", "medium")

	require.NoError(t, err)
	assert.Equal(t, []string{"planned query one", "planned query two"}, searcher.Queries)
	assert.Equal(t, "Condensed summary citing [src_001].", result.Summary)
	assert.Empty(t, result.KnowledgeGaps)
}

func TestEngine_Research_GapAnalysisDrivesSecondRound(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			if strings.Contains(prompt, "knowledge gaps") {
				assert.Contains(t, prompt, "Surface overview")
				return `["error floors", "hardware constraints", "decoder latency"]`, nil
			}
			return `["surface codes"]`, nil
		},
	}
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, query string, _ int) ([]SearchHit, error) {
			if strings.Contains(query, "error floors") {
				return []SearchHit{{URL: "https://example.com/floors", Title: "Error floors", Snippet: "deep dive"}}, nil
			}
			return []SearchHit{{URL: "https://example.com/a", Title: "Surface overview", Snippet: "basics"}}, nil
		},
	}
	fetcher := &MockFetcher{
		FetchTypedFunc: func(_ context.Context, urlStr string, _ *string) (*fetch.CachedResult, error) {
			return fetchedResult(urlStr, pageText(30)), nil
		},
	}

	engine := NewEngine(searcher, fetcher, client, Options{QueryCount: 1, GapQueries: 2})
	result, err := engine.Research(context.Background(), "Surface codes", "high")

	require.NoError(t, err)
	// One planned query, then one follow-up per gap up to the cap.
	assert.Equal(t, []string{
		"surface codes",
		"Surface codes error floors",
		"Surface codes hardware constraints",
	}, searcher.Queries)
	assert.Equal(t, []string{"error floors", "hardware constraints", "decoder latency"}, result.KnowledgeGaps)

	// The follow-up round's source made it into the result.
	var titles []string
	for _, src := range result.Sources {
		titles = append(titles, src.Title)
	}
	assert.Contains(t, titles, "Error floors")
}

func TestEngine_Research_GapAnalysisFailureStaysSingleRound(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			if strings.Contains(prompt, "knowledge gaps") {
				return "", errors.New("model overloaded")
			}
			return `["only query"]`, nil
		},
	}
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, _ string, _ int) ([]SearchHit, error) {
			return []SearchHit{{URL: "https://example.com/a", Title: "A", Snippet: "s"}}, nil
		},
	}
	fetcher := &MockFetcher{
		FetchTypedFunc: func(_ context.Context, urlStr string, _ *string) (*fetch.CachedResult, error) {
			return fetchedResult(urlStr, pageText(30)), nil
		},
	}

	engine := NewEngine(searcher, fetcher, client, Options{QueryCount: 1})
	result, err := engine.Research(context.Background(), "Topic", "medium")

	require.NoError(t, err)
	assert.Equal(t, []string{"only query"}, searcher.Queries)
	assert.Empty(t, result.KnowledgeGaps)
	require.Len(t, result.Sources, 1)
}

func TestEngine_Research_MaxSourcesCap(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, _ string, _ int) ([]SearchHit, error) {
			return []SearchHit{
				{URL: "https://example.com/1", Title: "1"},
				{URL: "https://example.com/2", Title: "2"},
				{URL: "https://example.com/3", Title: "3"},
			}, nil
		},
	}
	fetched := 0
	fetcher := &MockFetcher{
		FetchTypedFunc: func(_ context.Context, urlStr string, _ *string) (*fetch.CachedResult, error) {
			fetched++
			return fetchedResult(urlStr, pageText(30)), nil
		},
	}

	engine := NewEngine(searcher, fetcher, nil, Options{MaxSources: 2})
	result, err := engine.Research(context.Background(), "Topic", "medium")

	require.NoError(t, err)
	assert.Len(t, result.Sources, 2)
	assert.Equal(t, 2, fetched)
}

func TestSynthesize(t *testing.T) {
	result := Synthesize("Graph databases", "low")

	assert.True(t, result.Synthetic)
	assert.Equal(t, "Graph databases", result.Topic)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "src_001", result.Sources[0].ID)
	assert.Equal(t, "synthetic", result.Sources[0].SourceType)
	assert.Contains(t, result.Summary, "general knowledge")
}
