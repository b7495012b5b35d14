// Package images resolves slide image suggestions into concrete image
// references, falling back to labeled placeholders when lookup fails.
package images

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/haruki/slidegen/internal/deck"
)

// Searcher finds candidate images for a text description.
type Searcher interface {
	SearchImage(ctx context.Context, query string) (*deck.Image, error)
}

// ErrNoImage indicates that the search returned no usable image.
var ErrNoImage = fmt.Errorf("no image found")

// GoogleImageSearcher uses Google Custom Search in image mode.
type GoogleImageSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleImageSearcher creates an image searcher backed by a custom
// search engine configured for image results.
func NewGoogleImageSearcher(ctx context.Context, apiKey, cx string) (*GoogleImageSearcher, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleImageSearcher{
		svc: svc,
		cx:  cx,
	}, nil
}

// SearchImage returns the first usable image hit for the query.
func (s *GoogleImageSearcher) SearchImage(ctx context.Context, query string) (*deck.Image, error) {
	resp, err := s.svc.Cse.List().Context(ctx).Cx(s.cx).Q(query).SearchType("image").Num(3).Do()
	if err != nil {
		return nil, fmt.Errorf("image search failed for %q: %w", query, err)
	}

	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		attribution := item.DisplayLink
		if item.Image != nil && item.Image.ContextLink != "" {
			attribution = item.Image.ContextLink
		}
		return &deck.Image{
			URL:         item.Link,
			AltText:     query,
			Attribution: attribution,
		}, nil
	}

	return nil, ErrNoImage
}

// Placeholder builds the degraded stand-in for an unresolved suggestion.
// The alt text keeps the suggestion so a human can finish the job.
func Placeholder(suggestion string) *deck.Image {
	return &deck.Image{
		AltText:     fmt.Sprintf("Suggested image: %s", suggestion),
		Placeholder: true,
	}
}

// Resolver resolves all image suggestions in a deck.
type Resolver struct {
	searcher Searcher
	verbose  bool
}

// NewResolver creates a resolver. searcher may be nil; every suggestion
// then becomes a placeholder.
func NewResolver(searcher Searcher, verbose bool) *Resolver {
	return &Resolver{
		searcher: searcher,
		verbose:  verbose,
	}
}

// ImageSet maps slide IDs to resolved images for slides that asked for one.
type ImageSet struct {
	Images map[string]*deck.Image `json:"images"`
	// Resolved counts real images; the rest are placeholders.
	Resolved int `json:"resolved"`
}

// Resolve looks up an image for every slide with a suggestion.
// Failures degrade to placeholders rather than failing the set.
func (r *Resolver) Resolve(ctx context.Context, slides []deck.Slide) *ImageSet {
	set := &ImageSet{Images: make(map[string]*deck.Image)}

	for _, slide := range slides {
		suggestion := strings.TrimSpace(slide.ImageSuggestion)
		if suggestion == "" {
			continue
		}

		if r.searcher == nil {
			set.Images[slide.ID] = Placeholder(suggestion)
			continue
		}

		img, err := r.searcher.SearchImage(ctx, suggestion)
		if err != nil {
			if r.verbose {
				fmt.Printf("[VERBOSE] image lookup failed for %s: %v\n", slide.ID, err)
			}
			set.Images[slide.ID] = Placeholder(suggestion)
			continue
		}
		set.Images[slide.ID] = img
		set.Resolved++
	}

	return set
}

// Apply writes the resolved images onto the deck's slides.
func (set *ImageSet) Apply(d *deck.Deck) {
	for i := range d.Slides {
		if img, ok := set.Images[d.Slides[i].ID]; ok {
			d.Slides[i].Image = img
		}
	}
}
