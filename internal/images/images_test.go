package images

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/deck"
)

// MockImageSearcher implements Searcher for testing
type MockImageSearcher struct {
	SearchImageFunc func(ctx context.Context, query string) (*deck.Image, error)
}

func (m *MockImageSearcher) SearchImage(ctx context.Context, query string) (*deck.Image, error) {
	if m.SearchImageFunc != nil {
		return m.SearchImageFunc(ctx, query)
	}
	return nil, ErrNoImage
}

func slidesWithSuggestions() []deck.Slide {
	return []deck.Slide{
		{ID: "slide_001", Type: deck.SlideTypeTitle, Title: "Title"},
		{ID: "slide_002", Type: deck.SlideTypeContent, Title: "A", ImageSuggestion: "Bloch sphere diagram"},
		{ID: "slide_003", Type: deck.SlideTypeContent, Title: "B", ImageSuggestion: "quantum processor photo"},
	}
}

func TestResolver_ResolvesSuggestions(t *testing.T) {
	searcher := &MockImageSearcher{
		SearchImageFunc: func(_ context.Context, query string) (*deck.Image, error) {
			return &deck.Image{URL: "https://img.example.com/1.png", AltText: query}, nil
		},
	}

	set := NewResolver(searcher, false).Resolve(context.Background(), slidesWithSuggestions())

	require.Len(t, set.Images, 2)
	assert.Equal(t, 2, set.Resolved)
	assert.Equal(t, "Bloch sphere diagram", set.Images["slide_002"].AltText)
	assert.False(t, set.Images["slide_002"].Placeholder)
}

func TestResolver_FailureBecomesPlaceholder(t *testing.T) {
	searcher := &MockImageSearcher{
		SearchImageFunc: func(_ context.Context, query string) (*deck.Image, error) {
			if query == "Bloch sphere diagram" {
				return &deck.Image{URL: "https://img.example.com/1.png", AltText: query}, nil
			}
			return nil, errors.New("quota exceeded")
		},
	}

	set := NewResolver(searcher, false).Resolve(context.Background(), slidesWithSuggestions())

	require.Len(t, set.Images, 2)
	assert.Equal(t, 1, set.Resolved)
	assert.True(t, set.Images["slide_003"].Placeholder)
	assert.Contains(t, set.Images["slide_003"].AltText, "quantum processor photo")
}

func TestResolver_NilSearcherAllPlaceholders(t *testing.T) {
	set := NewResolver(nil, false).Resolve(context.Background(), slidesWithSuggestions())

	require.Len(t, set.Images, 2)
	assert.Equal(t, 0, set.Resolved)
	for _, img := range set.Images {
		assert.True(t, img.Placeholder)
	}
}

func TestResolver_IgnoresSlidesWithoutSuggestions(t *testing.T) {
	set := NewResolver(nil, false).Resolve(context.Background(), slidesWithSuggestions())

	_, ok := set.Images["slide_001"]
	assert.False(t, ok)
}

func TestImageSet_Apply(t *testing.T) {
	d := &deck.Deck{Slides: slidesWithSuggestions()}
	set := &ImageSet{
		Images: map[string]*deck.Image{
			"slide_002": {URL: "https://img.example.com/1.png", AltText: "diagram"},
		},
		Resolved: 1,
	}

	set.Apply(d)

	assert.True(t, d.Slides[1].HasImage())
	assert.Nil(t, d.Slides[0].Image)
	assert.Nil(t, d.Slides[2].Image)
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder("network topology diagram")

	assert.True(t, img.Placeholder)
	assert.Empty(t, img.URL)
	assert.Equal(t, "Suggested image: network topology diagram", img.AltText)
}
