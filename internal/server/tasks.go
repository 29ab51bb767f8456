package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
)

const (
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
	TaskCancelled = "cancelled"
)

// TaskFunc is the body of a background task. It reports progress through
// the registry using its id.
type TaskFunc func(ctx context.Context, taskID string) (*models.BatchResult, error)

type task struct {
	status models.TaskStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// TaskRegistry runs long operations in the background and keeps their
// status for polling.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*task
	hub   *Hub
	base  context.Context
}

func NewTaskRegistry(ctx context.Context, hub *Hub) *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]*task), hub: hub, base: ctx}
}

func (r *TaskRegistry) RunTask(kind, target string, fn TaskFunc) models.TaskStatus {
	ctx, cancel := context.WithCancel(r.base)
	id := uuid.NewString()
	zero := 0.0
	t := &task{
		status: models.TaskStatus{TaskID: id, Kind: kind, Target: target, Status: TaskRunning, Progress: &zero},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.mu.Lock()
	r.tasks[id] = t
	r.mu.Unlock()

	logging.GlobalLogger.Info("Task " + id + " started: " + kind + " " + target)
	started := t.status
	r.hub.Broadcast(models.Event{Type: models.EventDownloadStarted, TaskID: id, Payload: started})

	go func() {
		defer close(t.done)
		defer cancel()
		result, err := fn(ctx, id)

		r.mu.Lock()
		t.status.Result = result
		switch {
		case ctx.Err() != nil:
			t.status.Status = TaskCancelled
		case err != nil:
			msg := err.Error()
			t.status.Status = TaskFailed
			t.status.Error = &msg
		default:
			full := 100.0
			t.status.Status = TaskCompleted
			t.status.Progress = &full
		}
		final := t.status
		r.mu.Unlock()

		if final.Status == TaskFailed {
			logging.GlobalLogger.Warn("Task " + id + " failed: " + *final.Error)
			r.hub.Broadcast(models.Event{Type: models.EventDownloadError, TaskID: id, Payload: final})
			return
		}
		logging.GlobalLogger.Info("Task " + id + " " + final.Status)
		r.hub.Broadcast(models.Event{Type: models.EventDownloadCompleted, TaskID: id, Payload: final})
	}()
	return started
}

func (r *TaskRegistry) SetProgress(id string, percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		p := percent
		t.status.Progress = &p
	}
}

func (r *TaskRegistry) Get(id string) (models.TaskStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return models.TaskStatus{}, false
	}
	return t.status, true
}

// Cancel stops a running task. Reports false for unknown or finished tasks.
func (r *TaskRegistry) Cancel(id string) bool {
	r.mu.RLock()
	t, ok := r.tasks[id]
	running := ok && t.status.Status == TaskRunning
	r.mu.RUnlock()
	if !running {
		return false
	}
	t.cancel()
	return true
}

// Wait blocks until the task finishes or ctx is done.
func (r *TaskRegistry) Wait(ctx context.Context, id string) (models.TaskStatus, bool) {
	r.mu.RLock()
	t, ok := r.tasks[id]
	r.mu.RUnlock()
	if !ok {
		return models.TaskStatus{}, false
	}
	select {
	case <-t.done:
	case <-ctx.Done():
	}
	return r.Get(id)
}
