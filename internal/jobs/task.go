// Package jobs tracks in-flight remote calls.
//
// A Task runs one blocking call on its own goroutine. It is detached from the
// caller's cancellation, so a caller that stops waiting does not abort the
// call, and it can be cancelled explicitly by its owner (for example when an
// edit session is closed). Nothing is retried.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is a single in-flight call producing a T.
type Task[T any] struct {
	ID      string
	Started time.Time

	cancel context.CancelFunc
	done   chan struct{}
	result T
	err    error
}

// Start runs fn in the background and returns immediately. fn receives a
// context that carries ctx's values but is only cancelled by Task.Cancel.
func Start[T any](ctx context.Context, prefix string, fn func(ctx context.Context) (T, error)) *Task[T] {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &Task[T]{
		ID:      GenerateID(prefix),
		Started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()
		t.result, t.err = fn(taskCtx)
		log.Debug().
			Str("task", t.ID).
			Bool("ok", t.err == nil).
			Dur("duration", time.Since(t.Started)).
			Msg("Task finished")
	}()

	return t
}

// Cancel cancels the task's context. Safe to call more than once and after completion.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Done is closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done, whichever comes first.
// Returning early on ctx does not cancel the task.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
