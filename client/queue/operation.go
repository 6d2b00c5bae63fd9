package queue

// Operation represents an in-flight or completed async work item.
type Operation struct {
	key    Key
	done   chan struct{}
	err    error
	cancel func()
	queue  *Queue
}

// Key returns the cancellation-matching key the operation was
// registered under.
func (o *Operation) Key() Key { return o.key }

// Done returns a channel that is closed when the operation completes.
func (o *Operation) Done() <-chan struct{} { return o.done }

// Err blocks until the operation completes and returns its error.
func (o *Operation) Err() error {
	<-o.done
	return o.err
}

// Cancel cancels this operation's context.
func (o *Operation) Cancel() {
	o.cancel()
}
