// Package schedule runs a function on a fixed interval until stopped.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Task is a running periodic job.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every runs fn immediately and then once per interval until ctx is
// cancelled or Stop is called. Runs never overlap: a tick that arrives while
// fn is still running is dropped. fn receives a context that is cancelled on
// Stop.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		fn(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()
	return t
}

// Stop cancels the task and waits for an in-flight run to return.
// It is safe to call more than once.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

// Done is closed once the task has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
