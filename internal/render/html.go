package render

import (
	"embed"
	"html/template"
	"os"
	"strings"

	"github.com/haruki/slidegen/internal/deck"
)

//go:embed deck.html.tmpl
var templateFiles embed.FS

// templateData is the root object passed to the deck template.
type templateData struct {
	Deck  *deck.Deck
	Theme deck.Theme
}

// HTML renders the deck into a single standalone HTML document.
// Speaker notes are included but hidden; the theme drives the styling.
func HTML(d *deck.Deck) (string, error) {
	if d == nil || len(d.Slides) == 0 {
		return "", &RenderError{Message: "deck has no slides"}
	}

	tmpl, err := template.New("deck.html.tmpl").Funcs(template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}).ParseFS(templateFiles, "deck.html.tmpl")
	if err != nil {
		return "", &TemplateError{
			Message: "failed to parse deck template",
			Cause:   err,
		}
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, templateData{Deck: d, Theme: d.Theme}); err != nil {
		return "", &TemplateError{
			Message: "failed to execute deck template",
			Cause:   err,
		}
	}

	return out.String(), nil
}

// ToFile renders the deck and writes the document to path.
func ToFile(d *deck.Deck, path string) error {
	html, err := HTML(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return &RenderError{
			Message: "failed to write deck file",
			Cause:   err,
		}
	}
	return nil
}
