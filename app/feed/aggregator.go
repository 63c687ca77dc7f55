package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"birdfeed/app/config"
)

// maxConcurrentFetches limits parallel source fetches
const maxConcurrentFetches = 5

// SourceFetcher is implemented by Fetcher; declared here so tests can
// inject fakes.
type SourceFetcher interface {
	Fetch(ctx context.Context, source config.Source) ([]Article, error)
}

// Aggregator fans out to all enabled sources, tolerates partial failure
// and merges the results into a single recency-ordered candidate list.
type Aggregator struct {
	fetcher SourceFetcher
	sources []config.Source
}

func NewAggregator(fetcher SourceFetcher, sources []config.Source) *Aggregator {
	return &Aggregator{fetcher: fetcher, sources: sources}
}

// Run fetches every source concurrently. A failing or timed-out source
// contributes zero articles and is returned as a SourceError; the call
// itself never fails. Within the batch, articles sharing a URL are
// collapsed first-seen-wins in source configuration order.
func (a *Aggregator) Run(ctx context.Context) ([]Article, []*SourceError) {
	results := make([][]Article, len(a.sources))
	failures := make([]*SourceError, len(a.sources))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i, source := range a.sources {
		g.Go(func() error {
			articles, err := a.fetcher.Fetch(gctx, source)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if srcErr, ok := err.(*SourceError); ok {
					failures[i] = srcErr
				} else {
					failures[i] = &SourceError{SourceID: source.ID, Err: err}
				}
				return nil
			}
			results[i] = articles
			return nil
		})
	}

	// Fetch errors are captured per source, never propagated
	_ = g.Wait()

	var sourceErrors []*SourceError
	for _, failure := range failures {
		if failure != nil {
			slog.Warn("Source fetch failed", "source", failure.SourceID, "error", failure.Err)
			sourceErrors = append(sourceErrors, failure)
		}
	}

	merged := a.merge(results)

	slog.Info("Aggregated sources",
		"sources", len(a.sources),
		"failed", len(sourceErrors),
		"articles", len(merged))

	return merged, sourceErrors
}

func (a *Aggregator) merge(results [][]Article) []Article {
	seen := make(map[string]bool)
	var merged []Article

	for _, articles := range results {
		for _, article := range articles {
			if seen[article.URL] {
				continue
			}
			seen[article.URL] = true
			merged = append(merged, article)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	return merged
}
