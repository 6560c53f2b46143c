// Package clock abstracts "what time is it" so that due-ness decisions
// and next-occurrence arithmetic can be tested against fixed instants.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Fixed always returns the same instant.
type Fixed struct {
	t time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (f *Fixed) Now() time.Time {
	return f.t
}

// Set moves the fixed clock, for tests that advance time.
func (f *Fixed) Set(t time.Time) {
	f.t = t
}
