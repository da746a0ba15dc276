// Package ratelimit implements a sliding-window log limiter keyed by client
// identity, with in-process and Redis backends.
package ratelimit

import (
	"context"
	"time"
)

// Defaults used when a Limit leaves a field zero.
const (
	DefaultCalls  = 60
	DefaultWindow = time.Minute
)

// Limit allows Calls admissions per identity within any trailing Window.
type Limit struct {
	Calls  int
	Window time.Duration
}

func (l Limit) withDefaults() Limit {
	if l.Calls <= 0 {
		l.Calls = DefaultCalls
	}
	if l.Window <= 0 {
		l.Window = DefaultWindow
	}
	return l
}

// Store decides whether one more call from clientID is admitted at now.
// An admitted call is recorded; a rejected one is not.
type Store interface {
	Admit(ctx context.Context, clientID string, now time.Time) (bool, error)
}
