package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrShutdown is returned when work is submitted to a queue that has
// been shut down.
var ErrShutdown = errors.New("queue is shut down")

// WorkFunc is the signature for async work.
type WorkFunc func(ctx context.Context) error

// Key identifies an operation for cancellation matching. URL is the
// fully resolved request URL; both fields are compared exactly.
type Key struct {
	Method string
	URL    string
}

// Queue manages a batch of concurrent async operations.
type Queue struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	seq      uint64
	running  map[uint64]runningOp
	errs     []error
}

type runningOp struct {
	key    Key
	cancel context.CancelFunc
}

// New creates a Queue with the given concurrency limit.
// If maxConcurrent <= 0, concurrency is unlimited.
func New(maxConcurrent int) *Queue {
	q := &Queue{
		running: make(map[uint64]runningOp),
	}
	if maxConcurrent > 0 {
		q.sem = make(chan struct{}, maxConcurrent)
	}
	return q
}

// Start launches fn in a new goroutine managed by the queue and returns
// an Operation for tracking the individual item. The operation is
// registered for cancellation matching under key until it completes.
// ErrShutdown is returned when the queue has been shut down.
func (q *Queue) Start(ctx context.Context, key Key, fn WorkFunc) (*Operation, error) {
	if q.shutdown.Load() {
		return nil, ErrShutdown
	}

	ctx, cancel := context.WithCancel(ctx)
	op := &Operation{
		key:    key,
		done:   make(chan struct{}),
		cancel: cancel,
		queue:  q,
	}

	q.mu.Lock()
	q.seq++
	id := q.seq
	q.running[id] = runningOp{key: key, cancel: cancel}
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer func() {
			q.mu.Lock()
			delete(q.running, id)
			q.mu.Unlock()

			cancel()
			close(op.done)
			q.wg.Done()
		}()

		if q.sem != nil {
			select {
			case q.sem <- struct{}{}:
				defer func() {
					<-q.sem
				}()
			case <-ctx.Done():
				op.err = ctx.Err()
				q.recordErr(op.err)
				return
			}
		}

		if q.shutdown.Load() {
			op.err = ErrShutdown
			q.recordErr(op.err)
			return
		}

		op.err = fn(ctx)
		if op.err != nil {
			q.recordErr(op.err)
		}
	}()

	return op, nil
}

// CancelMatching cancels all in-flight operations whose key matches
// exactly, returning the number of operations signalled. Cancellation
// is best-effort: an operation that has already completed is
// unaffected, and one mid-flight stops only when its work function
// honors context cancellation.
func (q *Queue) CancelMatching(key Key) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int
	for _, op := range q.running {
		if op.key == key {
			op.cancel()
			n++
		}
	}

	return n
}

// Wait blocks until all operations in the queue complete.
// Returns all errors joined via errors.Join.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	return errors.Join(q.errs...)
}

// Shutdown prevents new work from executing in this queue.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// recordErr appends err to the queue's error slice under the mutex.
func (q *Queue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, err)
}
