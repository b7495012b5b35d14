// Package research - credibility.go scores and filters search hits before fetching.
package research

import (
	"net/url"
	"sort"
	"strings"

	"github.com/haruki/slidegen/internal/fetch"
)

// Credibility scores by source platform. Academic and encyclopedia
// sources outrank blogs when selecting which hits to fetch.
const (
	credibilityAcademic     = 0.95
	credibilityEncyclopedia = 0.9
	credibilityDocs         = 0.85
	credibilityNews         = 0.7
	credibilityBlog         = 0.5
	credibilityOther        = 0.4
)

// newsHosts are well-known outlets that get the news credibility score.
var newsHosts = []string{
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"bbc.co.uk",
	"nytimes.com",
	"theguardian.com",
	"economist.com",
	"nature.com",
	"scientificamerican.com",
}

// skipHosts never produce usable slide material.
var skipHosts = map[string]string{
	"twitter.com":   "social media",
	"x.com":         "social media",
	"facebook.com":  "social media",
	"instagram.com": "social media",
	"tiktok.com":    "social media",
	"pinterest.com": "social media",
	"youtube.com":   "video content",
	"vimeo.com":     "video content",
	"amazon.com":    "shopping",
	"ebay.com":      "shopping",
}

// ScoreHit assigns a credibility score and source type to a search hit.
func ScoreHit(hit SearchHit) RankedHit {
	platform := fetch.DetectPlatform(hit.URL)
	sourceType := fetch.SourceTypeForPlatform(platform)

	var cred float64
	switch platform {
	case fetch.PlatformArxiv:
		cred = credibilityAcademic
	case fetch.PlatformWikipedia:
		cred = credibilityEncyclopedia
	case fetch.PlatformGitHub:
		cred = credibilityDocs
	case fetch.PlatformMedium:
		cred = credibilityBlog
	default:
		if isNewsHost(hit.URL) {
			cred = credibilityNews
			sourceType = "news"
		} else {
			cred = credibilityOther
		}
	}

	return RankedHit{
		SearchHit:   hit,
		Credibility: cred,
		SourceType:  sourceType,
	}
}

// FilterHits deduplicates, drops unusable hosts, and ranks hits by
// credibility (descending, stable within equal scores).
func FilterHits(hits []SearchHit) ([]RankedHit, []SkippedHit) {
	seen := make(map[string]bool)
	var kept []RankedHit
	var skipped []SkippedHit

	for _, hit := range hits {
		if hit.URL == "" {
			continue
		}
		if seen[hit.URL] {
			continue
		}
		seen[hit.URL] = true

		if reason, skip := shouldSkipURL(hit.URL); skip {
			skipped = append(skipped, SkippedHit{URL: hit.URL, Reason: reason})
			continue
		}
		kept = append(kept, ScoreHit(hit))
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Credibility > kept[j].Credibility
	})

	return kept, skipped
}

func shouldSkipURL(urlStr string) (string, bool) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Host == "" {
		return "unparseable URL", true
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	for skipHost, reason := range skipHosts {
		if host == skipHost || strings.HasSuffix(host, "."+skipHost) {
			return reason, true
		}
	}

	if strings.HasSuffix(strings.ToLower(parsed.Path), ".pdf") {
		return "PDF document", true
	}

	return "", false
}

func isNewsHost(urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	for _, nh := range newsHosts {
		if host == nh || strings.HasSuffix(host, "."+nh) {
			return true
		}
	}
	return false
}
