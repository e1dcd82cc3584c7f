// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package closer provides a once-closeable signal channel, used by the
// engine to mark a pipeline direction (inbound/outbound) permanently shut
// after close_notify, without risking a double-close panic.
package closer

import "sync"

// Closer is a channel that can be closed exactly once from any number of
// goroutines, and whose Done() channel can be waited on any number of times.
type Closer struct {
	once sync.Once
	done chan struct{}
}

// NewCloser constructs a Closer.
func NewCloser() *Closer {
	return &Closer{done: make(chan struct{})}
}

// Close closes the Closer. Safe to call more than once.
func (c *Closer) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Done returns a channel that's closed once Close has been called.
func (c *Closer) Done() <-chan struct{} {
	return c.done
}

// IsClosed reports whether Close has been called.
func (c *Closer) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
