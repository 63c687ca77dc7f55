package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"birdfeed/app/compose"
	"birdfeed/app/media"
)

// DryRunChannel logs what would be posted instead of delivering it.
type DryRunChannel struct {
	counter atomic.Int64
}

func NewDryRunChannel() *DryRunChannel {
	return &DryRunChannel{}
}

func (d *DryRunChannel) Publish(ctx context.Context, post compose.Post, image *media.Image) (string, error) {
	id := d.counter.Add(1)

	attrs := []any{"id", id, "length", len(post.Text), "text", post.Text}
	if image != nil {
		attrs = append(attrs, "image", image.SourceURL)
	}
	slog.Info("Dry run, post not delivered", attrs...)

	return fmt.Sprintf("dry-run-%d", id), nil
}
