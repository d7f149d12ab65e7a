package pack

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when an operation is already in flight.
var ErrBusy = errors.New("operation already in progress")

// Gate admits at most one operation at a time. It does not queue: a request
// made while another is running is refused with [ErrBusy].
type Gate struct {
	sem  *semaphore.Weighted
	busy atomic.Bool
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Busy reports whether an operation is in flight.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// TryStart closes the gate and returns the function that reopens it.
// The returned function is safe to call more than once.
func (g *Gate) TryStart() (func(), error) {
	if !g.sem.TryAcquire(1) {
		return nil, ErrBusy
	}

	g.busy.Store(true)

	var released atomic.Bool

	return func() {
		if released.CompareAndSwap(false, true) {
			g.busy.Store(false)
			g.sem.Release(1)
		}
	}, nil
}

// Task is the handle of an operation started through [Gate.Go].
type Task struct {
	done    chan struct{}
	outputs []string
	err     error
}

// Done is closed once the operation and its completion callback returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx is done.
func (t *Task) Wait(ctx context.Context) ([]string, error) {
	select {
	case <-t.done:
		return t.outputs, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go runs fn on its own goroutine if the gate is open. The gate is closed
// before Go returns. When fn returns, the gate reopens, then onDone (if
// non-nil) runs with fn's results, then the task completes.
func (g *Gate) Go(ctx context.Context, fn func(context.Context) ([]string, error), onDone func([]string, error)) (*Task, error) {
	release, err := g.TryStart()
	if err != nil {
		return nil, err
	}

	task := &Task{done: make(chan struct{})}

	go func() {
		defer close(task.done)

		outputs, err := fn(ctx)

		release()

		if onDone != nil {
			onDone(outputs, err)
		}

		task.outputs, task.err = outputs, err
	}()

	return task, nil
}
