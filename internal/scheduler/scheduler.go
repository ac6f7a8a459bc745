// Package scheduler runs named periodic background tasks (secret rotation checks,
// nonce cleanup, audit flushing) with deterministic shutdown.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of periodic work.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler owns a set of periodic tasks. Tasks are registered before Start;
// Stop cancels every loop and waits for in-flight runs to return.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []Task
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates an empty Scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Register adds a task. Registering after Start returns an error.
func (s *Scheduler) Register(task Task) error {
	if task.Name == "" || task.Run == nil {
		return fmt.Errorf("scheduler: task requires a name and a run function")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("scheduler: task %q has non-positive interval %s", task.Name, task.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler: cannot register %q while running", task.Name)
	}
	for _, t := range s.tasks {
		if t.Name == task.Name {
			return fmt.Errorf("scheduler: task %q already registered", task.Name)
		}
	}
	s.tasks = append(s.tasks, task)
	return nil
}

// Start launches one goroutine per registered task. It returns immediately.
// Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}

	s.logger.Info("scheduler started", slog.Int("tasks", len(s.tasks)))
}

// Stop cancels all task loops and blocks until they have exited.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// RunNow executes the named task synchronously on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var found *Task
	for i := range s.tasks {
		if s.tasks[i].Name == name {
			found = &s.tasks[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("scheduler: unknown task %q", name)
	}
	return found.Run(ctx)
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := task.Run(ctx); err != nil {
				s.logger.Error("scheduled task failed",
					slog.String("task", task.Name),
					slog.Any("error", err),
				)
			}
		}
	}
}
