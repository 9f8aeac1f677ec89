// Package scheduler runs periodic background tasks, one goroutine per task.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of periodic work. Run is invoked once at startup and then
// every Interval until the scheduler's context is cancelled.
type Task interface {
	Run(ctx context.Context) error
	Interval() time.Duration
	Name() string
}

// Scheduler manages a set of periodic tasks.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  []Task
	wg     sync.WaitGroup
}

// New creates a scheduler whose tasks stop when ctx is cancelled or Stop is
// called, whichever comes first.
func New(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{ctx: ctx, cancel: cancel}
}

// AddTask registers a task. Must be called before Start.
func (s *Scheduler) AddTask(task Task) {
	s.tasks = append(s.tasks, task)
}

// Start launches every registered task in its own goroutine.
func (s *Scheduler) Start() {
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runTask(task)
	}
	slog.Info("scheduler started", "tasks", len(s.tasks))
}

// Stop cancels all tasks and waits for their goroutines to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) runTask(task Task) {
	defer s.wg.Done()

	run := func() {
		start := time.Now()
		if err := task.Run(s.ctx); err != nil {
			slog.Error("task failed", "task", task.Name(), "error", err)
			return
		}
		slog.Debug("task complete", "task", task.Name(), "duration", time.Since(start))
	}

	// First run happens immediately so a freshly started daemon has data
	// before the first tick.
	run()

	ticker := time.NewTicker(task.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
