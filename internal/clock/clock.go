// Package clock abstracts the wall clock so date-derived names can be tested.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

var _ Clock = (*Real)(nil)

// Real implements Clock using the system clock in local time.
type Real struct{}

// New creates a new Real clock.
func New() *Real {
	return &Real{}
}

func (c *Real) Now() time.Time { return time.Now() }

// Fixed returns a fixed time. Used by tests.
type Fixed struct {
	T time.Time
}

func (c *Fixed) Now() time.Time { return c.T }
