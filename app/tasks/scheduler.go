package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"birdfeed/app/cfg"
	"birdfeed/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	workerCount   = 2
	taskQueueSize = 50
	pruneInterval = 6 * time.Hour
)

// Scheduler owns the background task loop: a publish cycle on every
// tick and a retention prune a few times a day, executed by a small
// worker pool with bounded retries.
type Scheduler struct {
	runner      CycleRunner
	seenRepo    database.SeenRepository
	dedupWindow time.Duration
	interval    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(cycleRunner CycleRunner, seenRepo database.SeenRepository, dedupWindow time.Duration) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		runner:      cycleRunner,
		seenRepo:    seenRepo,
		dedupWindow: dedupWindow,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		pruneTicker := time.NewTicker(pruneInterval)
		defer pruneTicker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueTask(NewPublishCycleTask(s.runner)); err != nil {
					slog.Warn("Failed to enqueue PublishCycleTask", "error", err)
				}
			case <-pruneTicker.C:
				if err := s.EnqueueTask(NewPruneSeenTask(s.seenRepo, s.dedupWindow)); err != nil {
					slog.Warn("Failed to enqueue PruneSeenTask", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if err := s.EnqueueTask(NewPruneSeenTask(s.seenRepo, s.dedupWindow)); err != nil {
		slog.Warn("Failed to enqueue PruneSeenTask", "error", err)
	}
	if err := s.EnqueueTask(NewPublishCycleTask(s.runner)); err != nil {
		slog.Warn("Failed to enqueue PublishCycleTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// Tracked in the WaitGroup so Stop cannot close the queue
			// while a retry is still pending
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				timer := time.NewTimer(retryDelay)
				defer timer.Stop()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
				case <-timer.C:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
