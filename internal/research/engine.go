package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/fetch"
	"github.com/haruki/slidegen/internal/llm"
	"github.com/haruki/slidegen/internal/prompts"
)

// ErrNoSources indicates that search produced no usable sources.
var ErrNoSources = errors.New("no usable sources found")

// minUsableText is the minimum extracted text length for a source to count.
const minUsableText = 200

// maxSourceContentLen caps stored source content so prompts stay bounded.
const maxSourceContentLen = 6000

// maxGaps caps how many knowledge gaps are kept from the analysis pass.
const maxGaps = 5

// Fetcher retrieves page content for ranked hits. *fetch.CachedFetcher
// is the production implementation.
type Fetcher interface {
	FetchTyped(ctx context.Context, urlStr string, sourceType *string) (*fetch.CachedResult, error)
}

// Engine runs topic research: plan queries, search, fetch, condense.
type Engine struct {
	searcher Searcher
	fetcher  Fetcher
	client   llm.Client
	opts     Options
}

// NewEngine assembles a research engine. client may be nil; the summary
// then falls back to concatenated snippets.
func NewEngine(searcher Searcher, fetcher Fetcher, client llm.Client, opts Options) *Engine {
	return &Engine{
		searcher: searcher,
		fetcher:  fetcher,
		client:   client,
		opts:     opts.withDefaults(),
	}
}

// Research gathers sources for the topic and condenses them into a
// research result the outline stage consumes. It runs two search rounds:
// planned queries first, then follow-up queries for the knowledge gaps the
// first round left uncovered.
func (e *Engine) Research(ctx context.Context, topic string, depth deck.Depth) (*deck.ResearchResult, error) {
	queries := e.planQueries(ctx, topic, depth)
	hits := e.runSearches(ctx, queries)

	ranked, skipped := FilterHits(hits)
	if e.opts.Verbose && len(skipped) > 0 {
		fmt.Printf("[VERBOSE] skipped %d search hits\n", len(skipped))
	}
	if len(ranked) == 0 {
		return nil, ErrNoSources
	}

	gaps := e.extractGaps(ctx, topic, ranked)
	if len(gaps) > 0 {
		followUps := gapQueries(topic, gaps, e.opts.GapQueries)
		hits = append(hits, e.runSearches(ctx, followUps)...)
		// FilterHits dedupes, so re-ranking the combined set is safe.
		ranked, _ = FilterHits(hits)
	}

	sources := e.fetchSources(ctx, ranked)
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	summary, err := e.summarize(ctx, topic, sources)
	if err != nil {
		if e.opts.Verbose {
			fmt.Printf("[VERBOSE] summary generation failed, using snippets: %v\n", err)
		}
		summary = snippetSummary(sources)
	}

	return &deck.ResearchResult{
		Topic:         topic,
		Sources:       sources,
		Summary:       summary,
		KnowledgeGaps: gaps,
	}, nil
}

// runSearches issues each query and collects the hits; individual query
// failures are skipped.
func (e *Engine) runSearches(ctx context.Context, queries []string) []SearchHit {
	var hits []SearchHit
	for _, q := range queries {
		found, err := e.searcher.Search(ctx, q, e.opts.HitsPerQuery)
		if err != nil {
			if e.opts.Verbose {
				fmt.Printf("[VERBOSE] search %q failed: %v\n", q, err)
			}
			continue
		}
		hits = append(hits, found...)
	}
	return hits
}

// planQueries asks the LLM for focused queries, falling back to the
// static set when no client is configured or the response is unusable.
func (e *Engine) planQueries(ctx context.Context, topic string, depth deck.Depth) []string {
	static := StaticQueries(topic, depth)
	if e.client == nil {
		return static[:min(len(static), e.opts.QueryCount)]
	}

	template := prompts.MustGet("research.json", "search-queries")
	prompt := prompts.Format(template, map[string]string{
		"Topic":      topic,
		"Depth":      string(depth),
		"QueryCount": fmt.Sprintf("%d", e.opts.QueryCount),
	})

	resp, err := e.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return static[:min(len(static), e.opts.QueryCount)]
	}

	var queries []string
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(resp)), &queries); err != nil || len(queries) == 0 {
		return static[:min(len(static), e.opts.QueryCount)]
	}
	if len(queries) > e.opts.QueryCount {
		queries = queries[:e.opts.QueryCount]
	}
	return queries
}

// extractGaps asks the LLM which aspects of the topic the first-round hits
// leave uncovered. Without a client, or on an unusable response, it returns
// nil and research stays single-round.
func (e *Engine) extractGaps(ctx context.Context, topic string, ranked []RankedHit) []string {
	if e.client == nil {
		return nil
	}

	var sb strings.Builder
	for _, hit := range ranked {
		sb.WriteString(fmt.Sprintf("%s: %s\n", hit.Title, hit.Snippet))
	}

	template := prompts.MustGet("research.json", "knowledge-gaps")
	prompt := prompts.Format(template, map[string]string{
		"Topic": topic,
		"Hits":  sb.String(),
	})

	resp, err := e.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		if e.opts.Verbose {
			fmt.Printf("[VERBOSE] gap analysis failed: %v\n", err)
		}
		return nil
	}

	var raw []string
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(resp)), &raw); err != nil {
		return nil
	}

	var gaps []string
	for _, g := range raw {
		if g = strings.TrimSpace(g); g != "" {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) > maxGaps {
		gaps = gaps[:maxGaps]
	}
	return gaps
}

// gapQueries turns knowledge gaps into follow-up search queries, anchored
// on the topic so generic gap phrases stay on subject.
func gapQueries(topic string, gaps []string, limit int) []string {
	if len(gaps) > limit {
		gaps = gaps[:limit]
	}
	queries := make([]string, len(gaps))
	for i, g := range gaps {
		queries[i] = topic + " " + g
	}
	return queries
}

// fetchSources fetches ranked hits in credibility order until enough
// sources have usable text.
func (e *Engine) fetchSources(ctx context.Context, ranked []RankedHit) []deck.Source {
	var sources []deck.Source

	for _, hit := range ranked {
		if len(sources) >= e.opts.MaxSources {
			break
		}

		sourceType := hit.SourceType
		result, err := e.fetcher.FetchTyped(ctx, hit.URL, &sourceType)
		if err != nil {
			if e.opts.Verbose {
				fmt.Printf("[VERBOSE] fetch failed for %s: %v\n", hit.URL, err)
			}
			continue
		}

		text := result.Text
		if fetch.ShouldUseBrowser(text) && e.opts.BrowserFallback {
			text = e.browserText(ctx, hit.URL, result.HTML)
		}
		if len(strings.TrimSpace(text)) < minUsableText {
			if e.opts.Verbose {
				fmt.Printf("[VERBOSE] too little text from %s, skipping\n", hit.URL)
			}
			continue
		}
		if len(text) > maxSourceContentLen {
			text = text[:maxSourceContentLen]
		}

		sources = append(sources, deck.Source{
			ID:          SourceID(len(sources) + 1),
			URL:         hit.URL,
			Title:       hit.Title,
			Snippet:     hit.Snippet,
			Content:     text,
			SourceType:  hit.SourceType,
			Credibility: hit.Credibility,
		})
	}

	return sources
}

// browserText renders the page in a headless browser and re-extracts text.
// Returns the original extraction when rendering fails.
func (e *Engine) browserText(ctx context.Context, urlStr, fallbackHTML string) string {
	html, err := fetch.WithBrowser(ctx, urlStr, 30*time.Second, e.opts.Verbose)
	if err != nil {
		html = fallbackHTML
	}

	platform := fetch.DetectPlatform(urlStr)
	text, err := fetch.ExtractMainText(html,
		fetch.PlatformContentSelectors(platform),
		fetch.PlatformNoiseSelectors(platform)...)
	if err != nil {
		return ""
	}
	return text
}

// summarize condenses the fetched sources into a citable summary.
func (e *Engine) summarize(ctx context.Context, topic string, sources []deck.Source) (string, error) {
	if e.client == nil {
		return snippetSummary(sources), nil
	}

	var sb strings.Builder
	for _, src := range sources {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", src.ID, src.Title))
		excerpt := src.Content
		if excerpt == "" {
			excerpt = src.Snippet
		}
		if len(excerpt) > 2000 {
			excerpt = excerpt[:2000]
		}
		sb.WriteString(excerpt)
		sb.WriteString("\n\n")
	}

	template := prompts.MustGet("research.json", "summarize-sources")
	prompt := prompts.Format(template, map[string]string{
		"Topic":   topic,
		"Sources": sb.String(),
	})

	summary, err := e.client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return "", fmt.Errorf("failed to summarize sources: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// snippetSummary is the non-LLM fallback: the sources' snippets joined
// with their ids so the outline can still cite them.
func snippetSummary(sources []deck.Source) string {
	var sb strings.Builder
	for _, src := range sources {
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", src.ID, src.Title, src.Snippet))
	}
	return strings.TrimSpace(sb.String())
}

// Synthesize produces an offline research result from no external data.
// The result is marked synthetic so downstream consumers can lower
// their accuracy expectations.
func Synthesize(topic string, depth deck.Depth) *deck.ResearchResult {
	sources := []deck.Source{
		{
			ID:          SourceID(1),
			Title:       fmt.Sprintf("Background knowledge: %s", topic),
			Snippet:     fmt.Sprintf("General background material on %s.", topic),
			SourceType:  "synthetic",
			Credibility: 0.2,
		},
		{
			ID:          SourceID(2),
			Title:       fmt.Sprintf("Common applications of %s", topic),
			Snippet:     fmt.Sprintf("Typical use cases and examples related to %s.", topic),
			SourceType:  "synthetic",
			Credibility: 0.2,
		},
	}

	summary := fmt.Sprintf(
		"No external sources were available. Content about %q must rely on general knowledge at %s depth. Claims should stay conservative and avoid specific figures.",
		topic, depth)

	return &deck.ResearchResult{
		Topic:     topic,
		Sources:   sources,
		Summary:   summary,
		Synthetic: true,
	}
}
