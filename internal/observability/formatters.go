// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/haruki/slidegen/internal/control"
	"github.com/haruki/slidegen/internal/deck"
	"github.com/haruki/slidegen/internal/pipeline"
	"github.com/haruki/slidegen/internal/quality"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResearch outputs a human-readable summary of the research result.
func (p *Printer) PrintResearch(res *deck.ResearchResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic:    %s\n", res.Topic))
	sb.WriteString(fmt.Sprintf("Sources:  %d", len(res.Sources)))
	if res.Synthetic {
		sb.WriteString(" (synthesized offline)")
	}
	sb.WriteString("\n\n")

	count := min(len(res.Sources), maxItemsToShow)
	for i := 0; i < count; i++ {
		src := res.Sources[i]
		title := src.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n", src.ID, title))
		sb.WriteString(fmt.Sprintf("  %s, credibility %.2f\n", src.SourceType, src.Credibility))
	}
	if len(res.Sources) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more sources\n", len(res.Sources)-maxItemsToShow))
	}

	p.printBox("RESEARCH RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOutline outputs the slide structure of an outline or drafted deck.
func (p *Printer) PrintOutline(d *deck.Deck) {
	if d == nil || len(d.Slides) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:  %s\n", d.Title))
	sb.WriteString(fmt.Sprintf("Slides: %d\n\n", len(d.Slides)))

	for _, slide := range d.Slides {
		title := slide.Title
		if len(title) > 34 {
			title = title[:31] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s [%s] %s\n", slide.ID, slide.Type, title))
		extras := []string{fmt.Sprintf("%d bullets", len(slide.Bullets))}
		if len(slide.SourceIDs) > 0 {
			extras = append(extras, fmt.Sprintf("cites %s", strings.Join(slide.SourceIDs, ",")))
		}
		if slide.ImageSuggestion != "" {
			extras = append(extras, "image")
		}
		sb.WriteString(fmt.Sprintf("  %s\n", strings.Join(extras, ", ")))
	}

	p.printBox("DECK OUTLINE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQualityReport outputs per-slide scores and the classification.
func (p *Printer) PrintQualityReport(report *quality.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Classification: %s\n", report.Classification))
	sb.WriteString(fmt.Sprintf("Aggregate:      %.1f (threshold %.1f)\n\n", report.Aggregate, report.Threshold))

	for _, slide := range report.Slides {
		marker := " "
		if slide.BelowThreshold(report.Threshold) {
			marker = "!"
		}
		sb.WriteString(fmt.Sprintf("%s %s  %5.1f\n", marker, slide.SlideID, slide.Score))
		for _, metric := range slide.ViolatedMetrics(report.Threshold) {
			sb.WriteString(fmt.Sprintf("    %s: %.1f\n", metric, slide.Metrics[metric]))
		}
	}

	if len(report.Unresolved) > 0 {
		sb.WriteString(fmt.Sprintf("\nUnresolved after refinement: %s\n", strings.Join(report.Unresolved, ", ")))
	}

	p.printBox("QUALITY REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFallbackState outputs the final control tier and downgrade history.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFallbackState(tier control.Tier, transitions []control.Transition) {
	if len(transitions) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, fmt.Sprintf("TIER: %s (no degradation)", tier))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Final tier: %s\n\n", tier))
	for i, tr := range transitions {
		reason := tr.Reason
		if len(reason) > 45 {
			reason = reason[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s -> %s\n", tr.From, tr.To))
		sb.WriteString(fmt.Sprintf("  %s\n", reason))
		if i < len(transitions)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("FALLBACK TRANSITIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStageResults outputs one line per executed stage.
func (p *Printer) PrintStageResults(results []pipeline.Result) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, res := range results {
		sb.WriteString(fmt.Sprintf("%-16s %s\n", res.Stage, res.Status))
		detail := res.Reason
		if detail == "" {
			detail = res.Error
		}
		if detail != "" {
			if len(detail) > 45 {
				detail = detail[:42] + "..."
			}
			sb.WriteString(fmt.Sprintf("  %s\n", detail))
		}
	}

	p.printBox("STAGE RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}
