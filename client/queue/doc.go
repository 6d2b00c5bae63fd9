// Package queue executes enqueued HTTP operations asynchronously with
// an optional concurrency cap and best-effort cancellation by request
// identity.
//
// Work is started with [Queue.Start], which returns an [Operation] for
// tracking the individual item:
//
//	q := queue.New(4) // at most 4 concurrent operations
//	op := q.Start(ctx, queue.Key{Method: "GET", URL: u}, fn)
//	<-op.Done()
//
// In-flight operations whose [Key] matches exactly can be cancelled
// with [Queue.CancelMatching]. Already-completed operations are
// unaffected.
//
// Most callers should use the higher-level
// [github.com/go-restkit/restkit/client] package, which owns a Queue
// and submits request operations to it via Enqueue.
package queue
