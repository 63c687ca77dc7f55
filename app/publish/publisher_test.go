package publish

import (
	"context"
	"testing"
	"time"

	"birdfeed/app/compose"
	"birdfeed/app/config"
	"birdfeed/app/feed"
	"birdfeed/app/media"
)

type fakeChannel struct {
	responses []error
	calls     int
}

func (f *fakeChannel) Publish(ctx context.Context, post compose.Post, image *media.Image) (string, error) {
	err := f.responses[f.calls]
	f.calls++
	if err != nil {
		return "", err
	}
	return "tweet-123", nil
}

func testPost() compose.Post {
	return compose.Post{
		Text: "Bitcoin hits new high #Bitcoin",
		Article: feed.Article{
			Fingerprint: "abc123",
			URL:         "https://example.com/a",
		},
	}
}

func newTestPublisher(channel Channel, maxRetries int) (*Publisher, *[]time.Duration) {
	publisher := NewPublisher(channel, config.ErrorHandling{MaxRetries: maxRetries, RetryDelay: 5})

	var sleeps []time.Duration
	publisher.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	publisher.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	return publisher, &sleeps
}

func TestPublisher_SucceedsAfterTransientFailures(t *testing.T) {
	channel := &fakeChannel{responses: []error{
		&TransientError{Err: context.DeadlineExceeded},
		&TransientError{Err: context.DeadlineExceeded},
		nil,
	}}
	publisher, sleeps := newTestPublisher(channel, 3)

	record, err := publisher.Publish(context.Background(), testPost(), nil)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if !record.Success {
		t.Error("Expected successful record")
	}
	if record.ExternalID != "tweet-123" {
		t.Errorf("External ID = %q, want tweet-123", record.ExternalID)
	}
	if channel.calls != 3 {
		t.Errorf("Channel called %d times, want 3", channel.calls)
	}
	// Exponential backoff from the 5s base
	expected := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(*sleeps) != len(expected) {
		t.Fatalf("Slept %d times, want %d", len(*sleeps), len(expected))
	}
	for i, want := range expected {
		if (*sleeps)[i] != want {
			t.Errorf("Sleep %d = %v, want %v", i, (*sleeps)[i], want)
		}
	}
}

func TestPublisher_ExhaustsRetries(t *testing.T) {
	channel := &fakeChannel{responses: []error{
		&TransientError{Err: context.DeadlineExceeded},
		&TransientError{Err: context.DeadlineExceeded},
		&TransientError{Err: context.DeadlineExceeded},
	}}
	publisher, _ := newTestPublisher(channel, 2)

	record, err := publisher.Publish(context.Background(), testPost(), nil)
	if err != nil {
		t.Fatalf("Publish returned error for exhausted retries: %v", err)
	}

	if record.Success {
		t.Error("Expected failed record")
	}
	if record.FailureReason == "" {
		t.Error("Expected failure reason on record")
	}
	if channel.calls != 3 {
		t.Errorf("Channel called %d times, want 3 (initial + 2 retries)", channel.calls)
	}
}

func TestPublisher_StopsOnPermanentError(t *testing.T) {
	channel := &fakeChannel{responses: []error{
		&PermanentError{Err: context.DeadlineExceeded},
	}}
	publisher, sleeps := newTestPublisher(channel, 3)

	record, err := publisher.Publish(context.Background(), testPost(), nil)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if record.Success {
		t.Error("Expected failed record")
	}
	if channel.calls != 1 {
		t.Errorf("Channel called %d times, want 1 for permanent failure", channel.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("Slept %d times, want 0", len(*sleeps))
	}
}

func TestPublisher_HonorsRetryAfter(t *testing.T) {
	channel := &fakeChannel{responses: []error{
		&TransientError{Err: context.DeadlineExceeded, RetryAfter: 42 * time.Second},
		nil,
	}}
	publisher, sleeps := newTestPublisher(channel, 3)

	record, err := publisher.Publish(context.Background(), testPost(), nil)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if !record.Success {
		t.Error("Expected successful record")
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 42*time.Second {
		t.Errorf("Sleeps = %v, want [42s]", *sleeps)
	}
}

func TestPublisher_BackoffCapped(t *testing.T) {
	publisher, _ := newTestPublisher(&fakeChannel{}, 10)

	transient := &TransientError{Err: context.DeadlineExceeded}
	if got := publisher.backoff(10, transient); got != maxRetryDelay {
		t.Errorf("backoff(10) = %v, want cap %v", got, maxRetryDelay)
	}
}
