package llm

import "strings"

// CleanJSONBlock strips a markdown code fence from a model response.
// Gemini wraps JSON in ```json fences often enough, even with a JSON
// response MIME type requested, that every JSON consumer runs through
// this before unmarshalling.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	// The opening fence may carry a language tag ("json"). A first line
	// containing spaces or a brace is payload, not a tag.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := body[:nl]
		if len(tag) < 20 && !strings.ContainsAny(tag, " {") {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
