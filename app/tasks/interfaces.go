package tasks

import (
	"context"

	"birdfeed/app/runner"
)

// TaskSchedulerInterface defines the interface for background task
// processing. The main application starts it once and stops it on
// shutdown; everything in between is ticker-driven.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// CycleRunner runs one publish cycle.
type CycleRunner interface {
	Run(ctx context.Context, opts runner.Options) (runner.Report, error)
}
