// Package fetch - platform.go provides platform detection and platform-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known research source platform.
type Platform string

const (
	// PlatformWikipedia is MediaWiki-based encyclopedia sites
	PlatformWikipedia Platform = "wikipedia"
	// PlatformArxiv is the arXiv preprint server
	PlatformArxiv Platform = "arxiv"
	// PlatformGitHub is GitHub repository and docs pages
	PlatformGitHub Platform = "github"
	// PlatformMedium is Medium and Substack style blog platforms
	PlatformMedium Platform = "medium"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the source platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)

	// Wikipedia / MediaWiki patterns
	if strings.Contains(host, "wikipedia.org") ||
		strings.Contains(host, "wikimedia.org") {
		return PlatformWikipedia
	}

	// arXiv patterns
	if strings.Contains(host, "arxiv.org") {
		return PlatformArxiv
	}

	// GitHub patterns
	if strings.Contains(host, "github.com") ||
		strings.Contains(host, "github.io") {
		return PlatformGitHub
	}

	// Blog platform patterns
	if strings.Contains(host, "medium.com") ||
		strings.Contains(host, "substack.com") {
		return PlatformMedium
	}

	return PlatformUnknown
}

// SourceTypeForPlatform maps a platform to the source type stored with cached pages.
func SourceTypeForPlatform(platform Platform) string {
	switch platform {
	case PlatformWikipedia:
		return "encyclopedia"
	case PlatformArxiv:
		return "academic"
	case PlatformGitHub:
		return "docs"
	case PlatformMedium:
		return "blog"
	default:
		return "other"
	}
}

// PlatformContentSelectors returns content selectors optimized for a specific platform.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformWikipedia:
		return []string{
			"#mw-content-text", // Primary MediaWiki selector
			".mw-parser-output",
			"#bodyContent",
			"main",
		}
	case PlatformArxiv:
		return []string{
			".abstract",
			"blockquote.abstract",
			"#abs",
			".leftcolumn",
		}
	case PlatformGitHub:
		return []string{
			".markdown-body",
			"article",
			"readme-toc",
			"main",
		}
	case PlatformMedium:
		return []string{
			"article",
			".postArticle-content",
			".available-content",
			".body",
		}
	default:
		return ArticleSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for a specific platform.
func PlatformNoiseSelectors(platform Platform) []string {
	// Common noise selectors for all platforms
	common := []string{
		// Comments and discussion
		".comments",
		"#comments",
		".discussion",

		// Social and share buttons
		".social-share",
		".share-buttons",
		".social-links",

		// Cookie and GDPR
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",

		// Subscription prompts
		".paywall",
		".subscribe-banner",
		".newsletter-signup",

		// Generic navigation already handled in fetch.go
	}

	// Platform-specific noise selectors
	switch platform {
	case PlatformWikipedia:
		return append(common,
			".navbox",
			".infobox",
			".mw-editsection",
			"#toc",
			".reflist",
			".mbox-small",
		)
	case PlatformGitHub:
		return append(common,
			".Layout-sidebar",
			".file-navigation",
			".pagehead",
			".footer",
		)
	case PlatformMedium:
		return append(common,
			".metabar",
			".js-postMetaLockup",
			".responses-wrapper",
		)
	default:
		return common
	}
}
