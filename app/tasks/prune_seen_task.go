package tasks

import (
	"context"
	"log/slog"
	"time"

	"birdfeed/app/database"
)

type PruneSeenTask struct {
	Task
	seenRepo database.SeenRepository
	window   time.Duration
}

func NewPruneSeenTask(seenRepo database.SeenRepository, window time.Duration) *PruneSeenTask {
	return &PruneSeenTask{
		Task:     NewTask(TaskTypePruneSeen),
		seenRepo: seenRepo,
		window:   window,
	}
}

func (t *PruneSeenTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	removed, err := t.seenRepo.Prune(time.Now().Add(-t.window))
	if err != nil {
		return err
	}

	remaining, err := t.seenRepo.Count()
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "PruneSeen",
		"duration", t.GetDuration(),
		"removed", removed,
		"remaining", remaining)

	return nil
}
