package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreHit_Platforms(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantCred   float64
		wantSource string
	}{
		{"wikipedia", "https://en.wikipedia.org/wiki/Go_(programming_language)", 0.9, "encyclopedia"},
		{"arxiv", "https://arxiv.org/abs/2301.00001", 0.95, "academic"},
		{"github", "https://github.com/golang/go", 0.85, "docs"},
		{"medium", "https://medium.com/@someone/post", 0.5, "blog"},
		{"news", "https://www.reuters.com/technology/article", 0.7, "news"},
		{"other", "https://example.com/page", 0.4, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := ScoreHit(SearchHit{URL: tt.url})
			assert.Equal(t, tt.wantCred, ranked.Credibility)
			assert.Equal(t, tt.wantSource, ranked.SourceType)
		})
	}
}

func TestFilterHits_DedupAndSkip(t *testing.T) {
	hits := []SearchHit{
		{URL: "https://en.wikipedia.org/wiki/Topic", Title: "Wiki"},
		{URL: "https://en.wikipedia.org/wiki/Topic", Title: "Wiki again"},
		{URL: "https://twitter.com/someone/status/1", Title: "Tweet"},
		{URL: "https://youtube.com/watch?v=abc", Title: "Video"},
		{URL: "https://example.com/paper.pdf", Title: "PDF"},
		{URL: "https://example.com/article", Title: "Article"},
	}

	kept, skipped := FilterHits(hits)

	require.Len(t, kept, 2)
	assert.Len(t, skipped, 3)

	// Dedup kept only the first wikipedia entry
	assert.Equal(t, "Wiki", kept[0].Title)
}

func TestFilterHits_RanksByCredibility(t *testing.T) {
	hits := []SearchHit{
		{URL: "https://example.com/low", Title: "Other"},
		{URL: "https://arxiv.org/abs/1", Title: "Paper"},
		{URL: "https://en.wikipedia.org/wiki/A", Title: "Wiki"},
	}

	kept, _ := FilterHits(hits)
	require.Len(t, kept, 3)
	assert.Equal(t, "Paper", kept[0].Title)
	assert.Equal(t, "Wiki", kept[1].Title)
	assert.Equal(t, "Other", kept[2].Title)
}

func TestFilterHits_SubdomainSkip(t *testing.T) {
	hits := []SearchHit{
		{URL: "https://mobile.twitter.com/x/status/2", Title: "Tweet"},
		{URL: "https://music.youtube.com/v", Title: "Video"},
	}

	kept, skipped := FilterHits(hits)
	assert.Empty(t, kept)
	assert.Len(t, skipped, 2)
}

func TestStaticQueries(t *testing.T) {
	queries := StaticQueries("Rust ownership", "medium")
	assert.Contains(t, queries, "Rust ownership")
	assert.Contains(t, queries, "Rust ownership overview")
	assert.NotContains(t, queries, "Rust ownership state of the art")

	deepQueries := StaticQueries("Rust ownership", "high")
	assert.Contains(t, deepQueries, "Rust ownership state of the art")
}

func TestSourceID(t *testing.T) {
	assert.Equal(t, "src_001", SourceID(1))
	assert.Equal(t, "src_042", SourceID(42))
}
