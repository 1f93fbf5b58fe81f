package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TheMichaelB/calcvault/internal/events"
)

// TaskKind names the vault operation a task performs.
type TaskKind string

const (
	TaskIngest   TaskKind = "ingest"
	TaskRetrieve TaskKind = "retrieve"
	TaskDelete   TaskKind = "delete"
	TaskRecover  TaskKind = "recover"
)

// TaskState is the lifecycle position of a task.
type TaskState string

const (
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// EventType defines task event types.
type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event reports task progress to observers.
type Event struct {
	Type      EventType
	TaskID    string
	Kind      TaskKind
	Timestamp time.Time
	Status    string
	Error     error
}

// TaskFunc is the body of a background task. The returned string becomes
// the task's status line.
type TaskFunc func(ctx context.Context, task *Task) (string, error)

// Task is a handle on background vault work.
type Task struct {
	ID   string
	Kind TaskKind

	runner *Runner
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	state  TaskState
	status string
	err    error
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (string, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Cancel asks the task to stop at its next checkpoint.
func (t *Task) Cancel() {
	t.cancel()
}

// Result returns the final status line and error. Before completion it
// returns the latest progress line.
func (t *Task) Result() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.err
}

// Status returns the latest status line.
func (t *Task) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// State returns the lifecycle state.
func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Report updates the status line while the task runs and broadcasts it.
func (t *Task) Report(status string) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()

	t.runner.emit(Event{
		Type:      EventProgress,
		TaskID:    t.ID,
		Kind:      t.Kind,
		Timestamp: time.Now(),
		Status:    status,
	})
}

func (t *Task) finish(status string, err error) {
	t.mu.Lock()
	t.status = status
	t.err = err
	switch {
	case err == nil:
		t.state = TaskSucceeded
	case errors.Is(err, context.Canceled):
		t.state = TaskCancelled
	default:
		t.state = TaskFailed
	}
	t.mu.Unlock()

	close(t.done)
}

// Runner executes vault work off the caller's goroutine so a front-end
// never blocks on encryption or disk I/O.
type Runner struct {
	logger *events.Logger
	events chan Event

	mu           sync.Mutex
	tasks        map[string]*Task
	closed       bool
	eventsClosed bool
	wg           sync.WaitGroup
}

// NewRunner creates a runner whose event channel holds buffer events.
func NewRunner(logger *events.Logger, buffer int) *Runner {
	if buffer <= 0 {
		buffer = 100
	}
	return &Runner{
		logger: logger.WithField("component", "task_runner"),
		events: make(chan Event, buffer),
		tasks:  make(map[string]*Task),
	}
}

// Events returns the event channel. It is closed by Close.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Go starts fn in the background and returns its handle.
func (r *Runner) Go(ctx context.Context, kind TaskKind, fn TaskFunc) *Task {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(events.WithTaskID(ctx, id))

	task := &Task{
		ID:     id,
		Kind:   kind,
		runner: r,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  TaskRunning,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		task.finish("", errors.New("task runner closed"))
		return task
	}
	r.tasks[id] = task
	r.wg.Add(1)
	r.mu.Unlock()

	logger := r.logger.WithFields(map[string]interface{}{
		"task_id": id,
		"kind":    string(kind),
	})
	logger.Debug("Task started")

	r.emit(Event{Type: EventStarted, TaskID: id, Kind: kind, Timestamp: time.Now()})

	go func() {
		defer r.wg.Done()
		defer cancel()

		status, err := r.run(ctx, task, fn)
		task.finish(status, err)

		r.mu.Lock()
		delete(r.tasks, id)
		r.mu.Unlock()

		event := Event{Type: EventCompleted, TaskID: id, Kind: kind, Timestamp: time.Now(), Status: status}
		if err != nil {
			event.Type = EventFailed
			event.Error = err
			logger.WithError(err).Debug("Task failed")
		} else {
			logger.WithField("status", status).Debug("Task completed")
		}
		r.emit(event)
	}()

	return task
}

func (r *Runner) run(ctx context.Context, task *Task, fn TaskFunc) (status string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
			r.logger.WithField("task_id", task.ID).Error(err.Error())
		}
	}()
	return fn(ctx, task)
}

// Running returns the number of unfinished tasks.
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Wait blocks until every started task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close cancels outstanding tasks, waits for them and closes Events.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, task := range r.tasks {
		task.Cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	close(r.events)
	r.eventsClosed = true
	r.mu.Unlock()
}

func (r *Runner) emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.eventsClosed {
		return
	}

	select {
	case r.events <- event:
	default:
		// Channel full, drop event
		r.logger.Debug("Event channel full, dropping event")
	}
}
