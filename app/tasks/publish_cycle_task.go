package tasks

import (
	"context"
	"log/slog"

	"birdfeed/app/runner"
)

type PublishCycleTask struct {
	Task
	runner CycleRunner
}

func NewPublishCycleTask(cycleRunner CycleRunner) *PublishCycleTask {
	return &PublishCycleTask{
		Task:   NewTask(TaskTypePublishCycle),
		runner: cycleRunner,
	}
}

func (t *PublishCycleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.runner.Run(ctx, runner.Options{})
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "PublishCycle",
		"duration", t.GetDuration(),
		"published", report.Published,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"source_errors", report.SourceErrors)

	return nil
}
