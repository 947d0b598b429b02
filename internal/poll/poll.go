// Package poll runs cancellable periodic checks. An Owner holds at most one
// in-flight check, so a superseded poll can never complete a newer
// operation.
package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// ErrInvalidInterval is the error of a task started with a non-positive
// interval. Such a task never calls its Func.
var ErrInvalidInterval = errors.New("poll: interval must be positive")

// Func is called once per tick. Returning done=true or a non-nil error ends
// the task.
type Func func(ctx context.Context) (done bool, err error)

// Task is a running poll loop.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Start calls fn immediately and then every interval until fn finishes,
// fails, or ctx is cancelled. A non-positive interval yields a task that has
// already ended with ErrInvalidInterval.
func Start(ctx context.Context, interval time.Duration, fn Func) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	if interval <= 0 {
		t.setErr(ErrInvalidInterval)
		cancel()
		close(t.done)
		return t
	}
	go t.run(ctx, interval, fn)
	return t
}

func (t *Task) run(ctx context.Context, interval time.Duration, fn Func) {
	defer close(t.done)
	defer t.cancel()

	err := wait.PollUntilContextCancel(ctx, interval, true, wait.ConditionWithContextFunc(fn))
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	t.setErr(err)
}

func (t *Task) setErr(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

// Stop cancels the task. It is safe to call more than once and after the
// task has finished.
func (t *Task) Stop() {
	t.cancel()
}

// Done is closed when the loop has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns why the task ended: fn's error, the context error if it was
// stopped, or nil if fn reported done. Only meaningful after Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the task exits and returns Err.
func (t *Task) Wait() error {
	<-t.done
	return t.Err()
}

// Owner tracks the current operation. Starting a new one stops the previous
// task, and IsCurrent lets callbacks drop results for operations that have
// been superseded.
type Owner struct {
	mu      sync.Mutex
	current string
	task    *Task
}

// Start replaces the current operation with id. fn only runs while id is
// still current.
func (o *Owner) Start(ctx context.Context, id string, interval time.Duration, fn Func) *Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.task != nil {
		o.task.Stop()
	}
	o.current = id
	o.task = Start(ctx, interval, func(ctx context.Context) (bool, error) {
		if !o.IsCurrent(id) {
			return true, nil
		}
		return fn(ctx)
	})
	return o.task
}

// IsCurrent reports whether id is the operation this owner is tracking.
func (o *Owner) IsCurrent(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current == id
}

// Stop ends the current operation, if any.
func (o *Owner) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.task != nil {
		o.task.Stop()
	}
	o.current = ""
	o.task = nil
}
