package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haruki/slidegen/internal/db"
)

// CachedFetcher fronts URL fetching with the crawled-page cache.
// A nil database degrades it to a plain fetcher, so research works
// without persistence configured.
type CachedFetcher struct {
	db        *db.DB
	options   *Options
	cacheTTL  time.Duration
	skipCache bool
}

// CachedFetcherConfig configures cache behavior.
type CachedFetcherConfig struct {
	CacheTTL  time.Duration
	SkipCache bool
	Options   *Options
}

// NewCachedFetcher builds a fetcher over an optional database. A nil
// config uses the default TTL and fetch options.
func NewCachedFetcher(database *db.DB, config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = &CachedFetcherConfig{}
	}
	f := &CachedFetcher{
		db:        database,
		options:   config.Options,
		cacheTTL:  config.CacheTTL,
		skipCache: config.SkipCache,
	}
	if f.options == nil {
		f.options = DefaultOptions()
	}
	if f.cacheTTL == 0 {
		f.cacheTTL = db.DefaultPageCacheTTL
	}
	return f
}

// CachedResult is a fetch Result plus cache provenance.
type CachedResult struct {
	*Result
	FromCache bool
	PageID    uuid.UUID
}

// Fetch retrieves a URL, serving from cache when a fresh copy exists.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	return f.FetchTyped(ctx, urlStr, nil)
}

// FetchTyped retrieves a URL and stores the given source type with the
// cached page, so later runs can weigh the source without
// re-classifying it. URLs under failure backoff are refused.
func (f *CachedFetcher) FetchTyped(ctx context.Context, urlStr string, sourceType *string) (*CachedResult, error) {
	if f.db != nil && !f.skipCache {
		shouldSkip, reason, err := f.db.ShouldSkipURL(ctx, urlStr)
		if err != nil {
			return nil, fmt.Errorf("failed to check skip status: %w", err)
		}
		if shouldSkip {
			return nil, &Error{URL: urlStr, Message: fmt.Sprintf("URL skipped: %s", reason)}
		}

		cached, err := f.db.GetFreshCrawledPage(ctx, urlStr, f.cacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check cache: %w", err)
		}
		if cached != nil {
			return &CachedResult{
				Result: &Result{
					URL:        cached.URL,
					HTML:       derefString(cached.RawHTML),
					Text:       derefString(cached.ParsedText),
					StatusCode: derefInt(cached.HTTPStatus),
				},
				FromCache: true,
				PageID:    cached.ID,
			}, nil
		}
	}

	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		if f.db != nil {
			status := 0
			if result != nil {
				status = result.StatusCode
			}
			_ = f.db.RecordFailedFetch(ctx, urlStr, status, err.Error())
		}
		return nil, err
	}

	text, _ := ExtractMainText(result.HTML, ArticleSelectors())
	result.Text = text

	if f.db != nil {
		page := &db.CrawledPage{
			URL:         urlStr,
			SourceType:  sourceType,
			RawHTML:     &result.HTML,
			ParsedText:  &result.Text,
			HTTPStatus:  &result.StatusCode,
			FetchStatus: db.FetchStatusSuccess,
		}
		// A failed cache write does not fail a successful fetch.
		if err := f.db.UpsertCrawledPage(ctx, page); err == nil {
			return &CachedResult{Result: result, FromCache: false, PageID: page.ID}, nil
		}
	}

	return &CachedResult{Result: result, FromCache: false}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
