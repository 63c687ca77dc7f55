package feed

import (
	"fmt"
	"strings"

	readability "codeberg.org/readeck/go-readability"
)

// Hard cap on extracted summary length; the composer trims further
const maxExtractedSummary = 600

// ContentExtractor recovers a plain-text summary from an article page
// for feed items that ship without a description.
type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

func (e *ContentExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	if len(text) > maxExtractedSummary {
		cut := strings.LastIndex(text[:maxExtractedSummary], " ")
		if cut <= 0 {
			cut = maxExtractedSummary
		}
		text = text[:cut]
	}

	return text, nil
}
