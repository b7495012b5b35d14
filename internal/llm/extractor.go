// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "TopicAnalysis", "SourceDigest")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Base every field on the input text, do not invent facts.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// TopicAnalysisSchema returns the extraction schema for presentation topic analysis.
// The orchestrated strategy uses it to size slide counts and refinement budgets.
func TopicAnalysisSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "TopicAnalysis",
		Description: `You are an expert presentation planner. Analyze the presentation topic below.
Rate each dimension on an integer scale from 1 to 10.
Goal: Estimate topic complexity, expected audience expertise, and how much the topic benefits from visuals.`,
		Fields: []SchemaField{
			{
				Name:        "complexity",
				Type:        "1-10",
				Description: "Conceptual difficulty of the topic (1 trivial, 10 research-grade)",
				Required:    true,
			},
			{
				Name:        "expertise",
				Type:        "1-10",
				Description: "Background knowledge the likely audience already has",
				Required:    true,
			},
			{
				Name:        "visual_importance",
				Type:        "1-10",
				Description: "How much images and diagrams would improve comprehension",
				Required:    true,
			},
			{
				Name:        "recommended_depth",
				Type:        "\"string\"",
				Description: "One of: low, medium, high",
				Required:    true,
			},
			{
				Name:        "recommended_count",
				Type:        "number",
				Description: "Suggested slide count for this topic",
				Required:    true,
			},
			{
				Name:        "considerations",
				Type:        "[\"string\"]",
				Description: "Short notes on pitfalls or focus areas for this topic",
				Required:    false,
			},
		},
	}
}
