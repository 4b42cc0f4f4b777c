// Package taskqueue runs submitted tasks in FIFO order with a bound on how
// many run at the same time.
package taskqueue

import (
	"container/list"
	"context"
	"errors"
	"sync"
)

var ErrCancelled = errors.New("taskqueue: task cancelled")

const DefaultMaxConcurrent = 10

type Queue struct {
	mu            sync.Mutex
	maxConcurrent int
	running       int
	pending       *list.List
}

type task struct {
	exec func()
	done chan struct{}
	err  error
}

func New(maxConcurrent int) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Queue{
		maxConcurrent: maxConcurrent,
		pending:       list.New(),
	}
}

func (q *Queue) MaxConcurrent() int {
	if q == nil {
		return 0
	}
	return q.maxConcurrent
}

// Pending returns the number of queued tasks that have not started.
func (q *Queue) Pending() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

func (q *Queue) Running() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Clear rejects every task that has not started with ErrCancelled. Running
// tasks are left to finish.
func (q *Queue) Clear() {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for elem := q.pending.Front(); elem != nil; elem = elem.Next() {
		t := elem.Value.(*task)
		t.err = ErrCancelled
		close(t.done)
	}
	q.pending.Init()
}

// Submit queues fn and blocks until it has run, was cleared, or ctx ends
// before it started.
func Submit[T any](ctx context.Context, q *Queue, fn func(context.Context) (T, error)) (T, error) {
	pending, err := submit(ctx, q, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return pending.wait(ctx)
}

// Map queues fn for every item in input order, then waits for all of them.
// Results follow input order and the first error by position is returned.
func Map[T any, R any](ctx context.Context, q *Queue, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if fn == nil {
		return nil, errors.New("taskqueue: task is nil")
	}
	queued := make([]*pendingTask[R], 0, len(items))
	for i := range items {
		item := items[i]
		pending, err := submit(ctx, q, func(taskCtx context.Context) (R, error) {
			return fn(taskCtx, item)
		})
		if err != nil {
			for _, earlier := range queued {
				_, _ = earlier.wait(ctx)
			}
			return nil, err
		}
		queued = append(queued, pending)
	}

	errs := make([]error, len(items))
	for i, pending := range queued {
		results[i], errs[i] = pending.wait(ctx)
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

type pendingTask[T any] struct {
	q      *Queue
	t      *task
	elem   *list.Element
	result *T
}

func submit[T any](ctx context.Context, q *Queue, fn func(context.Context) (T, error)) (*pendingTask[T], error) {
	if q == nil {
		return nil, errors.New("taskqueue: queue is nil")
	}
	if fn == nil {
		return nil, errors.New("taskqueue: task is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := new(T)
	t := &task{done: make(chan struct{})}
	t.exec = func() {
		*result, t.err = fn(ctx)
	}
	return &pendingTask[T]{q: q, t: t, elem: q.enqueue(t), result: result}, nil
}

// wait blocks until the task has run or was cleared. When ctx ends first a
// task that has not started is withdrawn.
func (p *pendingTask[T]) wait(ctx context.Context) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-p.t.done:
	case <-ctx.Done():
		if p.q.remove(p.elem) {
			return zero, ctx.Err()
		}
		<-p.t.done
	}
	if p.t.err != nil {
		return zero, p.t.err
	}
	return *p.result, nil
}

func (q *Queue) enqueue(t *task) *list.Element {
	q.mu.Lock()
	elem := q.pending.PushBack(t)
	q.mu.Unlock()
	q.dispatch()
	return elem
}

func (q *Queue) remove(elem *list.Element) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for current := q.pending.Front(); current != nil; current = current.Next() {
		if current == elem {
			q.pending.Remove(elem)
			return true
		}
	}
	return false
}

func (q *Queue) dispatch() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.running < q.maxConcurrent && q.pending.Len() > 0 {
		t := q.pending.Remove(q.pending.Front()).(*task)
		q.running++
		go q.run(t)
	}
}

func (q *Queue) run(t *task) {
	t.exec()
	close(t.done)
	q.mu.Lock()
	q.running--
	q.mu.Unlock()
	q.dispatch()
}
