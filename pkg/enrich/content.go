package enrich

import (
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

var citationPattern = regexp.MustCompile(`\[\d+\]`)

// StripCitations removes the numeric citation markers encyclopedia extracts
// carry over from the article markup.
func StripCitations(text string) string {
	return citationPattern.ReplaceAllString(text, "")
}

// EmbeddingText derives the normalized text used for downstream embedding
// from the article content: citation markers removed, whitespace collapsed,
// and the result capped at maxTokens under the given encoder. It never
// influences graph structure.
func EmbeddingText(content string, encoder string, maxTokens int) string {
	text := StripCitations(content)
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || maxTokens <= 0 {
		return text
	}

	tke, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		// Unknown encoder: fall back to the uncapped text rather than
		// losing the content.
		return text
	}
	tokens := tke.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return tke.Decode(tokens[:maxTokens])
}
