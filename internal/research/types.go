// Package research gathers and condenses web sources for a presentation topic.
package research

import (
	"fmt"

	"github.com/haruki/slidegen/internal/deck"
)

// SearchHit is a single result from a web search.
type SearchHit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// RankedHit is a search hit with a credibility score for fetch ordering.
type RankedHit struct {
	SearchHit
	Credibility float64 `json:"credibility"`
	SourceType  string  `json:"source_type"`
}

// SkippedHit is a search hit that was filtered out before fetching.
type SkippedHit struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Options configures a research run.
type Options struct {
	// MaxSources caps how many pages are fetched and kept.
	MaxSources int
	// QueryCount is how many search queries to issue for the topic.
	QueryCount int
	// HitsPerQuery is how many results to take from each query.
	HitsPerQuery int
	// GapQueries caps the follow-up searches driven by knowledge-gap
	// analysis of the first round.
	GapQueries int
	// BrowserFallback renders JavaScript-heavy pages in a headless browser
	// when the plain HTTP fetch yields too little text.
	BrowserFallback bool
	Verbose         bool
}

// DefaultOptions returns research defaults sized for a single deck.
func DefaultOptions() Options {
	return Options{
		MaxSources:   6,
		QueryCount:   4,
		HitsPerQuery: 5,
		GapQueries:   2,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxSources <= 0 {
		o.MaxSources = def.MaxSources
	}
	if o.QueryCount <= 0 {
		o.QueryCount = def.QueryCount
	}
	if o.HitsPerQuery <= 0 {
		o.HitsPerQuery = def.HitsPerQuery
	}
	if o.GapQueries <= 0 {
		o.GapQueries = def.GapQueries
	}
	return o
}

// StaticQueries returns deterministic search queries for a topic.
// Used when no LLM is available to plan queries.
func StaticQueries(topic string, depth deck.Depth) []string {
	queries := []string{
		topic,
		topic + " overview",
		topic + " examples applications",
	}
	if depth == deck.DepthHigh {
		queries = append(queries, topic+" research challenges", topic+" state of the art")
	} else {
		queries = append(queries, topic+" explained")
	}
	return queries
}

// SourceID formats the stable identifier for the nth kept source.
func SourceID(n int) string {
	return fmt.Sprintf("src_%03d", n)
}
