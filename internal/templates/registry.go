// Package templates holds the built-in deck themes and topic-aware theme selection.
package templates

import (
	"fmt"

	"github.com/haruki/slidegen/internal/deck"
)

// Template bundles a theme with the metadata the selector scores against.
type Template struct {
	Theme deck.Theme `json:"theme"`
	// Tags describe the audiences and topic flavors the template suits.
	Tags []string `json:"tags"`
	// Description is shown when listing templates.
	Description string `json:"description"`
}

// registry holds the built-in templates keyed by theme name.
// All color pairs meet the 4.5:1 contrast minimum for normal text.
var registry = map[string]Template{
	"modern": {
		Theme: deck.Theme{
			Name:            "modern",
			BackgroundColor: "#FFFFFF",
			TextColor:       "#1A1A2E",
			AccentColor:     "#0F4C81",
			BaseFontSizePx:  18,
			HeadingFontPx:   32,
		},
		Tags:        []string{"technology", "startup", "product", "visual"},
		Description: "Clean look with strong accent color, suited to technical and product topics",
	},
	"classic": {
		Theme: deck.Theme{
			Name:            "classic",
			BackgroundColor: "#FDF6E3",
			TextColor:       "#073642",
			AccentColor:     "#B58900",
			BaseFontSizePx:  18,
			HeadingFontPx:   30,
		},
		Tags:        []string{"business", "history", "finance", "formal"},
		Description: "Warm traditional palette for business and humanities topics",
	},
	"dark": {
		Theme: deck.Theme{
			Name:            "dark",
			BackgroundColor: "#1E1E2E",
			TextColor:       "#E0E0F0",
			AccentColor:     "#89B4FA",
			BaseFontSizePx:  18,
			HeadingFontPx:   32,
		},
		Tags:        []string{"technology", "developer", "gaming", "evening"},
		Description: "Dark background for developer audiences and low-light rooms",
	},
	"minimal": {
		Theme: deck.Theme{
			Name:            "minimal",
			BackgroundColor: "#FFFFFF",
			TextColor:       "#212121",
			AccentColor:     "#616161",
			BaseFontSizePx:  20,
			HeadingFontPx:   36,
		},
		Tags:        []string{"design", "keynote", "minimal", "executive"},
		Description: "Sparse monochrome layout that keeps attention on few words",
	},
	"academic": {
		Theme: deck.Theme{
			Name:            "academic",
			BackgroundColor: "#F5F5F5",
			TextColor:       "#1B1B1B",
			AccentColor:     "#7B1F2B",
			BaseFontSizePx:  16,
			HeadingFontPx:   28,
		},
		Tags:        []string{"science", "research", "education", "lecture", "detailed"},
		Description: "Dense academic styling for lectures and research talks",
	},
}

// defaultTemplate is used when no scoring signal prefers another one.
const defaultTemplate = "modern"

// Get returns the named template.
func Get(name string) (Template, error) {
	tpl, ok := registry[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template %q", name)
	}
	return tpl, nil
}

// Names returns all registered template names in stable order.
func Names() []string {
	return []string{"modern", "classic", "dark", "minimal", "academic"}
}

// Default returns the fallback template used by degraded runs.
func Default() Template {
	return registry[defaultTemplate]
}
