package render

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/deck"
)

func sampleDeck() *deck.Deck {
	return &deck.Deck{
		Topic: "Quantum Computing",
		Title: "Introduction to Quantum Computing",
		Theme: deck.Theme{
			Name:            "modern",
			BackgroundColor: "#FFFFFF",
			TextColor:       "#1A1A2E",
			AccentColor:     "#0F4C81",
			BaseFontSizePx:  18,
			HeadingFontPx:   32,
		},
		Slides: []deck.Slide{
			{
				ID:    "slide_001",
				Type:  deck.SlideTypeTitle,
				Title: "Introduction to Quantum Computing",
			},
			{
				ID:      "slide_002",
				Type:    deck.SlideTypeContent,
				Title:   "Qubits",
				Bullets: []string{"Superposition lets qubits hold mixed states", "Entanglement links qubit measurements"},
				Notes:   "Explain the Bloch sphere here.",
				Image: &deck.Image{
					URL:         "https://images.example.com/bloch.png",
					AltText:     "Bloch sphere diagram",
					Attribution: "Example Images / CC-BY",
				},
			},
			{
				ID:      "slide_003",
				Type:    deck.SlideTypeConclusion,
				Title:   "Recap",
				Bullets: []string{"Qubits differ fundamentally from bits"},
				Image: &deck.Image{
					AltText:     "Suggested image: quantum processor",
					Placeholder: true,
				},
			},
		},
		Sources: []deck.Source{
			{ID: "src_001", Title: "Quantum computing overview", URL: "https://en.wikipedia.org/wiki/Quantum_computing"},
		},
	}
}

func TestHTML_RendersAllSlides(t *testing.T) {
	html, err := HTML(sampleDeck())
	require.NoError(t, err)

	assert.Contains(t, html, `id="slide_001"`)
	assert.Contains(t, html, `id="slide_002"`)
	assert.Contains(t, html, `id="slide_003"`)
	assert.Contains(t, html, "<title>Introduction to Quantum Computing</title>")
	assert.Contains(t, html, "Superposition lets qubits hold mixed states")
}

func TestHTML_AppliesTheme(t *testing.T) {
	html, err := HTML(sampleDeck())
	require.NoError(t, err)

	assert.Contains(t, html, "--bg: #FFFFFF")
	assert.Contains(t, html, "--fg: #1A1A2E")
	assert.Contains(t, html, "--base-size: 18px")
}

func TestHTML_ImageAndAttribution(t *testing.T) {
	html, err := HTML(sampleDeck())
	require.NoError(t, err)

	assert.Contains(t, html, `src="https://images.example.com/bloch.png"`)
	assert.Contains(t, html, `alt="Bloch sphere diagram"`)
	assert.Contains(t, html, "Example Images / CC-BY")
}

func TestHTML_PlaceholderImage(t *testing.T) {
	html, err := HTML(sampleDeck())
	require.NoError(t, err)

	assert.Contains(t, html, `class="image-placeholder"`)
	assert.Contains(t, html, "Suggested image: quantum processor")
	// Placeholder slides never emit an img tag
	assert.NotContains(t, html, `<img src=""`)
}

func TestHTML_NotesHiddenButPresent(t *testing.T) {
	html, err := HTML(sampleDeck())
	require.NoError(t, err)

	assert.Contains(t, html, `<aside class="notes">Explain the Bloch sphere here.</aside>`)
	assert.Contains(t, html, "aside.notes { display: none; }")
}

func TestHTML_SourcesAppendix(t *testing.T) {
	html, err := HTML(sampleDeck())
	require.NoError(t, err)

	assert.Contains(t, html, `id="src_001"`)
	assert.Contains(t, html, "https://en.wikipedia.org/wiki/Quantum_computing")
}

func TestHTML_EscapesContent(t *testing.T) {
	d := sampleDeck()
	d.Slides[1].Bullets = []string{`<script>alert("x")</script>`}

	html, err := HTML(d)
	require.NoError(t, err)

	assert.NotContains(t, html, `<script>alert("x")</script>`)
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestHTML_EmptyDeck(t *testing.T) {
	_, err := HTML(&deck.Deck{})
	require.Error(t, err)

	var re *RenderError
	assert.True(t, errors.As(err, &re))
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.html")
	require.NoError(t, ToFile(sampleDeck(), path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "<!DOCTYPE html>")
}
