package registry

import "sync"

// CancelToken is a one-shot advisory signal used to wake an expiry
// waiter early. It is an optimization only: resolution correctness
// rests on Take, not on the waiter observing the signal in time.
type CancelToken struct {
	once sync.Once
	ch   chan struct{}
}

func NewCancelToken() *CancelToken {
	return &CancelToken{ch: make(chan struct{})}
}

// Cancel fires the token. Safe to call any number of times from any
// goroutine.
func (c *CancelToken) Cancel() {
	c.once.Do(func() { close(c.ch) })
}

// Done returns a channel closed once Cancel has been called.
func (c *CancelToken) Done() <-chan struct{} {
	return c.ch
}
