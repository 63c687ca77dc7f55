package feed

import (
	"fmt"
	"time"
)

// Article is one ingested news item, normalized across sources
type Article struct {
	SourceID    string
	URL         string
	Title       string
	Summary     string
	PublishedAt time.Time

	// Fingerprint identifies the article for deduplication purposes.
	// Derived from the normalized title and URL, stable across runs.
	Fingerprint string
}

// SourceError reports a failed fetch from a single source. The aggregator
// records these as warnings and continues with the remaining sources.
type SourceError struct {
	SourceID string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.SourceID, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
