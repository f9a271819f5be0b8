package distill

import "sync/atomic"

// Token is a set-once cooperative cancellation flag shared between an
// asynchronous signal handler and the processing loop. The loop polls it at
// unit boundaries only; an in-flight oracle request always completes or fails
// normally. A nil *Token is valid and never cancelled.
type Token struct {
	cancelled atomic.Bool
}

// Cancel sets the flag. It is never cleared within a run.
func (t *Token) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports whether cancellation was requested.
func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}
