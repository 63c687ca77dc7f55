package publish

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"birdfeed/app/compose"
	"birdfeed/app/config"
	"birdfeed/app/database"
	"birdfeed/app/media"
)

const maxRetryDelay = 30 * time.Second

// Publisher drives a Channel with bounded retries. Transient failures
// are retried with exponential backoff, honoring a server-requested
// wait when one was given; permanent failures stop immediately.
type Publisher struct {
	channel    Channel
	maxRetries int
	retryDelay time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewPublisher(channel Channel, errorsCfg config.ErrorHandling) *Publisher {
	return &Publisher{
		channel:    channel,
		maxRetries: errorsCfg.MaxRetries,
		retryDelay: errorsCfg.GetRetryDelay(),
		sleep:      sleepContext,
		now:        time.Now,
	}
}

// Publish attempts to deliver the post, retrying transient failures.
// The outcome, success or not, is reported as a Publication record;
// the error return is reserved for context cancellation.
func (p *Publisher) Publish(ctx context.Context, post compose.Post, image *media.Image) (database.Publication, error) {
	record := database.Publication{
		Fingerprint: post.Article.Fingerprint,
		Text:        post.Text,
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := p.backoff(attempt, lastErr)
			slog.Info("Retrying publish", "fingerprint", record.Fingerprint, "attempt", attempt, "wait", wait)
			if err := p.sleep(ctx, wait); err != nil {
				record.PostedAt = p.now()
				record.FailureReason = lastErr.Error()
				return record, err
			}
		}

		externalID, err := p.channel.Publish(ctx, post, image)
		if err == nil {
			record.PostedAt = p.now()
			record.Success = true
			record.ExternalID = externalID
			slog.Info("Published post", "fingerprint", record.Fingerprint, "external_id", externalID)
			return record, nil
		}

		lastErr = err

		var permanent *PermanentError
		if errors.As(err, &permanent) {
			slog.Error("Publish rejected", "fingerprint", record.Fingerprint, "error", err)
			break
		}
		if ctx.Err() != nil {
			record.PostedAt = p.now()
			record.FailureReason = lastErr.Error()
			return record, ctx.Err()
		}

		slog.Warn("Publish attempt failed", "fingerprint", record.Fingerprint, "attempt", attempt+1, "error", err)
	}

	record.PostedAt = p.now()
	record.FailureReason = lastErr.Error()
	return record, nil
}

// backoff doubles the base delay per attempt, capped, unless the
// server asked for a specific wait.
func (p *Publisher) backoff(attempt int, lastErr error) time.Duration {
	var transient *TransientError
	if errors.As(lastErr, &transient) && transient.RetryAfter > 0 {
		return transient.RetryAfter
	}

	delay := p.retryDelay * time.Duration(1<<(attempt-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
