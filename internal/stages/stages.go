// Package stages contains the concrete pipeline stages: research, outline,
// template selection, drafting, image fetch, and final assembly. Each stage
// implements the pipeline.Stage contract and owns exactly one store key.
package stages

import (
	"fmt"
	"strings"

	"github.com/haruki/slidegen/internal/deck"
)

// Stage names, recorded as writer IDs on store entries.
const (
	StageResearch       = "research"
	StageOutline        = "outline"
	StageTemplateSelect = "template_select"
	StageDraft          = "draft"
	StageImageFetch     = "image_fetch"
	StageAssemble       = "assemble"
)

// Store keys owned by the stages. KeyAssembled must match the key the
// coordinator reads the final deck from.
const (
	KeyResearch  = "research.result"
	KeyOutline   = "outline.deck"
	KeyTheme     = "template.theme"
	KeyDraft     = "draft.deck"
	KeyImages    = "images.set"
	KeyAssembled = "assembled.deck"
)

// maxMaterialPerSource caps the research content handed to the drafting
// prompt per cited source.
const maxMaterialPerSource = 3000

// sourceMaterial renders the cited sources' content as prompt material.
// Sources the slide does not cite are excluded so the generator cannot
// cite them.
func sourceMaterial(sources []deck.Source, sourceIDs []string) string {
	if len(sourceIDs) == 0 {
		return "(no sources cited; write from the outline alone)"
	}
	cited := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		cited[id] = true
	}

	var b strings.Builder
	for _, src := range sources {
		if !cited[src.ID] {
			continue
		}
		body := src.Content
		if body == "" {
			body = src.Snippet
		}
		if len(body) > maxMaterialPerSource {
			body = body[:maxMaterialPerSource]
		}
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n", src.ID, src.Title, body)
	}
	if b.Len() == 0 {
		return "(cited sources carry no content; write from the outline alone)"
	}
	return strings.TrimSpace(b.String())
}

// slideIDFor formats the canonical slide ID for a 1-based position.
func slideIDFor(n int) string {
	return fmt.Sprintf("slide_%03d", n)
}
