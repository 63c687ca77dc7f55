package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"birdfeed/app/compose"
	"birdfeed/app/database"
	"birdfeed/app/feed"
	"birdfeed/app/media"
	"birdfeed/app/schedule"
)

// ArticleSource produces the merged candidate list for a cycle.
type ArticleSource interface {
	Run(ctx context.Context) ([]feed.Article, []*feed.SourceError)
}

// PostComposer rewrites an article into a post.
type PostComposer interface {
	Compose(article feed.Article) (compose.Post, error)
}

// ImageResolver finds an attachment for a post, best effort.
type ImageResolver interface {
	Resolve(ctx context.Context, query string) (*media.Image, error)
}

// PostPublisher delivers a post and reports the outcome as a record.
type PostPublisher interface {
	Publish(ctx context.Context, post compose.Post, image *media.Image) (database.Publication, error)
}

// SlotPlanner gates publications to the configured posting slots.
type SlotPlanner interface {
	NextDue(now time.Time) (schedule.Slot, bool)
	Consume(slot schedule.Slot)
	MinGap() time.Duration
}

// Options shapes a single cycle.
type Options struct {
	// Limit stops the cycle after this many successful publications.
	// Zero means slot-gated only.
	Limit int
	// IgnoreSlots publishes immediately instead of waiting for due
	// slots. The minimum gap between publications still applies.
	IgnoreSlots bool
	// DryRun leaves the seen set and the publication log untouched,
	// so a later real run sees the same candidates.
	DryRun bool
}

// Report summarizes one cycle.
type Report struct {
	Published    int
	Failed       int
	Skipped      int
	SourceErrors int
	FetchedTotal int
}

// ExitCode maps a cycle outcome to a process exit code: 0 when
// everything that was attempted succeeded, 2 when some work succeeded
// alongside failures, 1 when nothing succeeded despite failures.
func (r Report) ExitCode() int {
	switch {
	case r.Failed == 0 && r.SourceErrors == 0:
		return 0
	case r.Failed > 0 && r.Published == 0:
		return 1
	case r.FetchedTotal == 0 && r.Published == 0:
		return 1
	default:
		return 2
	}
}

// Runner coordinates one publish cycle: fetch, dedup, compose,
// decorate, gate, deliver, record.
type Runner struct {
	source    ArticleSource
	seen      database.SeenRepository
	pubs      database.PublicationRepository
	composer  PostComposer
	images    ImageResolver // nil when image attachment is off
	publisher PostPublisher
	planner   SlotPlanner

	now func() time.Time
}

func NewRunner(
	source ArticleSource,
	seen database.SeenRepository,
	pubs database.PublicationRepository,
	composer PostComposer,
	images ImageResolver,
	publisher PostPublisher,
	planner SlotPlanner,
) *Runner {
	return &Runner{
		source:    source,
		seen:      seen,
		pubs:      pubs,
		composer:  composer,
		images:    images,
		publisher: publisher,
		planner:   planner,
		now:       time.Now,
	}
}

// Run executes one cycle. The error return is reserved for context
// cancellation and storage failures; publish failures are counted in
// the report instead.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{}

	articles, sourceErrors := r.source.Run(ctx)
	report.SourceErrors = len(sourceErrors)
	report.FetchedTotal = len(articles)

	if len(articles) == 0 {
		slog.Info("Cycle finished, nothing to publish", "source_errors", report.SourceErrors)
		return report, nil
	}

	for _, article := range articles {
		if opts.Limit > 0 && report.Published >= opts.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		slot, open := r.nextSlot(opts)
		if !open {
			slog.Info("No posting slot due, cycle stops", "remaining", len(articles)-report.Published-report.Skipped)
			break
		}

		if wait, gapped := r.withinMinGap(); gapped {
			slog.Info("Minimum gap since last publication not elapsed", "remaining", wait)
			break
		}

		seen, err := r.seen.HasSeen(article.Fingerprint)
		if err != nil {
			return report, err
		}
		if seen {
			report.Skipped++
			continue
		}

		post, err := r.composer.Compose(article)
		if err != nil {
			var composeErr *compose.ComposeError
			if errors.As(err, &composeErr) {
				slog.Warn("Article not composable, skipped", "fingerprint", article.Fingerprint, "error", err)
				report.Skipped++
				continue
			}
			return report, err
		}

		image := r.resolveImage(ctx, post)

		record, err := r.publisher.Publish(ctx, post, image)
		if err != nil {
			return report, err
		}

		if !opts.DryRun {
			if appendErr := r.pubs.Append(record); appendErr != nil {
				slog.Error("Failed to record publication", "fingerprint", record.Fingerprint, "error", appendErr)
			}
		}

		if record.Success {
			// Only delivered articles are retired; failures stay
			// eligible for the next cycle
			if !opts.DryRun {
				if markErr := r.seen.MarkSeen(article.Fingerprint, r.now()); markErr != nil {
					slog.Error("Failed to mark article as seen", "fingerprint", article.Fingerprint, "error", markErr)
				}
				if !opts.IgnoreSlots {
					r.planner.Consume(slot)
				}
			}
			report.Published++
		} else {
			report.Failed++
		}
	}

	slog.Info("Cycle finished",
		"published", report.Published,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"source_errors", report.SourceErrors)

	return report, nil
}

func (r *Runner) nextSlot(opts Options) (schedule.Slot, bool) {
	if opts.IgnoreSlots {
		return schedule.Slot{At: r.now()}, true
	}
	return r.planner.NextDue(r.now())
}

// withinMinGap reports whether the last successful publication is too
// recent for another one.
func (r *Runner) withinMinGap() (time.Duration, bool) {
	minGap := r.planner.MinGap()
	if minGap <= 0 {
		return 0, false
	}

	last, err := r.pubs.LastSuccessAt()
	if err != nil || last == nil {
		return 0, false
	}

	elapsed := r.now().Sub(*last)
	if elapsed < minGap {
		return minGap - elapsed, true
	}
	return 0, false
}

func (r *Runner) resolveImage(ctx context.Context, post compose.Post) *media.Image {
	if r.images == nil || post.ImageQuery == "" {
		return nil
	}

	image, err := r.images.Resolve(ctx, post.ImageQuery)
	if err != nil {
		slog.Warn("Image resolution failed, posting without image", "query", post.ImageQuery, "error", err)
		return nil
	}
	return image
}
