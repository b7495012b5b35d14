// Package deck defines the core domain types for generated presentations:
// decks, slides, research sources, and the immutable generation request.
package deck

import "strings"

// Density controls the expected text volume per slide.
type Density string

const (
	DensityMinimal  Density = "minimal"
	DensityBalanced Density = "balanced"
	DensityDetailed Density = "detailed"
)

// Depth controls how much research is performed before outlining.
type Depth string

const (
	DepthLow    Depth = "low"
	DepthMedium Depth = "medium"
	DepthHigh   Depth = "high"
)

// SlideType categorizes a slide's structural role in the deck.
type SlideType string

const (
	SlideTypeTitle      SlideType = "title"
	SlideTypeContent    SlideType = "content"
	SlideTypeConclusion SlideType = "conclusion"
)

// Request describes a single generation request. It is immutable once
// accepted by the pipeline; stages read it but never modify it.
type Request struct {
	Topic      string  `json:"topic" validate:"required"`
	SlideCount int     `json:"slide_count" validate:"min=1,max=50"`
	Style      string  `json:"style"`
	Depth      Depth   `json:"depth"`
	Density    Density `json:"density"`
}

// Source is a single research source backing the deck's content.
type Source struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet"`
	Content     string  `json:"content,omitempty"`
	SourceType  string  `json:"source_type"`
	Credibility float64 `json:"credibility"`
}

// Image is a resolved image reference for a slide.
type Image struct {
	URL         string `json:"url"`
	AltText     string `json:"alt_text"`
	Attribution string `json:"attribution,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Slide is one addressable sub-unit of the deck. Quality scoring and
// refinement operate on slides independently.
type Slide struct {
	ID              string    `json:"id"`
	Type            SlideType `json:"type"`
	Title           string    `json:"title"`
	Bullets         []string  `json:"bullets"`
	Notes           string    `json:"notes,omitempty"`
	SourceIDs       []string  `json:"source_ids,omitempty"`
	ImageSuggestion string    `json:"image_suggestion,omitempty"`
	Image           *Image    `json:"image,omitempty"`
}

// WordCount returns the total number of words across the slide's title,
// bullets, and notes.
func (s *Slide) WordCount() int {
	count := len(strings.Fields(s.Title))
	for _, b := range s.Bullets {
		count += len(strings.Fields(b))
	}
	count += len(strings.Fields(s.Notes))
	return count
}

// HasImage reports whether the slide carries a resolved image reference.
func (s *Slide) HasImage() bool {
	return s.Image != nil && s.Image.URL != ""
}

// Theme describes the visual attributes quality evaluation cares about.
// Rendering owns the full theme; this is the slice the evaluator reads.
type Theme struct {
	Name            string  `json:"name"`
	BackgroundColor string  `json:"background_color"`
	TextColor       string  `json:"text_color"`
	AccentColor     string  `json:"accent_color"`
	BaseFontSizePx  float64 `json:"base_font_size_px"`
	HeadingFontPx   float64 `json:"heading_font_px"`
}

// Deck is the aggregate artifact: an ordered sequence of slides plus the
// research sources and theme they were produced from.
type Deck struct {
	Topic   string   `json:"topic"`
	Title   string   `json:"title"`
	Slides  []Slide  `json:"slides"`
	Sources []Source `json:"sources,omitempty"`
	Theme   Theme    `json:"theme"`
	Density Density  `json:"density"`
}

// SlideByID returns the slide with the given ID, or nil.
func (d *Deck) SlideByID(id string) *Slide {
	for i := range d.Slides {
		if d.Slides[i].ID == id {
			return &d.Slides[i]
		}
	}
	return nil
}

// SourceByID returns the source with the given ID, or nil.
func (d *Deck) SourceByID(id string) *Source {
	for i := range d.Sources {
		if d.Sources[i].ID == id {
			return &d.Sources[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the deck. Refinement mutates candidate
// slides and must not alias the original.
func (d *Deck) Clone() *Deck {
	out := *d
	out.Slides = make([]Slide, len(d.Slides))
	copy(out.Slides, d.Slides)
	for i := range out.Slides {
		out.Slides[i].Bullets = append([]string(nil), d.Slides[i].Bullets...)
		out.Slides[i].SourceIDs = append([]string(nil), d.Slides[i].SourceIDs...)
		if d.Slides[i].Image != nil {
			img := *d.Slides[i].Image
			out.Slides[i].Image = &img
		}
	}
	out.Sources = append([]Source(nil), d.Sources...)
	return &out
}

// ResearchResult is the output artifact of the research stage.
type ResearchResult struct {
	Topic   string   `json:"topic"`
	Sources []Source `json:"sources"`
	Summary string   `json:"summary"`
	// KnowledgeGaps are the aspects the first search round left thin;
	// each drove a follow-up search.
	KnowledgeGaps []string `json:"knowledge_gaps,omitempty"`
	Synthetic     bool     `json:"synthetic,omitempty"`
}
