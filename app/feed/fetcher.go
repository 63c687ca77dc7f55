package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"birdfeed/app/config"
)

// Fetcher pulls raw items from one feed URL and normalizes them into
// Articles. Every failure is returned as a *SourceError so the caller
// can continue with other sources.
type Fetcher struct {
	httpClient   *http.Client
	gofeedParser *gofeed.Parser
	extractor    *ContentExtractor
	userAgent    string
	timeout      time.Duration
	window       time.Duration
	maxItems     int
	now          func() time.Time
}

func NewFetcher(httpClient *http.Client, fetchCfg config.Fetch, userAgent string) *Fetcher {
	f := &Fetcher{
		httpClient:   httpClient,
		gofeedParser: gofeed.NewParser(),
		userAgent:    userAgent,
		timeout:      fetchCfg.GetFetchTimeout(),
		window:       fetchCfg.GetRecencyWindow(),
		maxItems:     fetchCfg.MaxItemsPerSource,
		now:          time.Now,
	}
	if fetchCfg.EnrichSummaries {
		f.extractor = NewContentExtractor()
	}
	return f
}

// Fetch retrieves recent articles from a single source. The returned
// error is always a *SourceError; the article slice is nil on failure.
func (f *Fetcher) Fetch(ctx context.Context, source config.Source) ([]Article, error) {
	data, err := f.download(ctx, source.URL)
	if err != nil {
		return nil, &SourceError{SourceID: source.ID, Err: err}
	}

	parsed, err := f.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &SourceError{SourceID: source.ID, Err: fmt.Errorf("failed to parse feed: %w", err)}
	}

	cutoff := f.now().Add(-f.window)
	articles := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if f.maxItems > 0 && len(articles) >= f.maxItems {
			break
		}

		article, ok := f.normalizeItem(item, source.ID)
		if !ok {
			continue
		}
		if article.PublishedAt.Before(cutoff) {
			continue
		}

		if article.Summary == "" && f.extractor != nil {
			article.Summary = f.enrichSummary(ctx, article)
		}

		articles = append(articles, article)
	}

	slog.Debug("Fetched source", "source", source.ID, "total", len(parsed.Items), "recent", len(articles))

	return articles, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (f *Fetcher) normalizeItem(item *gofeed.Item, sourceID string) (Article, bool) {
	if item.Title == "" || item.Link == "" {
		return Article{}, false
	}

	published := f.now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return Article{
		SourceID:    sourceID,
		URL:         item.Link,
		Title:       item.Title,
		Summary:     item.Description,
		PublishedAt: published,
		Fingerprint: Fingerprint(item.Title, item.Link),
	}, true
}

// enrichSummary fetches the article page and extracts readable text.
// Best effort: any failure leaves the summary empty.
func (f *Fetcher) enrichSummary(ctx context.Context, article Article) string {
	data, err := f.download(ctx, article.URL)
	if err != nil {
		slog.Debug("Summary enrichment fetch failed", "url", article.URL, "error", err)
		return ""
	}

	text, err := f.extractor.Run(data)
	if err != nil {
		slog.Debug("Summary enrichment extraction failed", "url", article.URL, "error", err)
		return ""
	}

	return text
}
