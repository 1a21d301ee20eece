package worker

import "context"

// Task adapts a function over one input item to a Job
type Task[T, R any] struct {
	Index int
	Item  T
	Run   func(ctx context.Context, item T) (R, error)
}

// Execute runs the task function
func (t *Task[T, R]) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &TaskResult[R]{Index: t.Index, Err: err}
	}
	value, err := t.Run(ctx, t.Item)
	return &TaskResult[R]{Index: t.Index, Value: value, Err: err}
}

// TaskResult is the outcome of one Task
type TaskResult[R any] struct {
	Index int
	Value R
	Err   error
}

// GetError returns the task error
func (r *TaskResult[R]) GetError() error {
	return r.Err
}

// Map runs fn over items on a pool of workers and returns the results in
// input order. Items never started because ctx was cancelled carry the
// context error.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) (R, error)) []TaskResult[R] {
	out := make([]TaskResult[R], len(items))
	if len(items) == 0 {
		return out
	}

	pool := NewPool(ctx, workers)
	pool.Start()

	done := make([]bool, len(items))
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range pool.Results() {
			r := result.(*TaskResult[R])
			out[r.Index] = *r
			done[r.Index] = true
		}
	}()

	for i, item := range items {
		if !pool.Submit(&Task[T, R]{Index: i, Item: item, Run: fn}) {
			break
		}
	}
	pool.Close()
	<-collected

	for i := range out {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = TaskResult[R]{Index: i, Err: err}
		}
	}
	return out
}
