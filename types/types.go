package types

import (
	"time"
)

type LifecycleManager interface {
	Start() error
	Stop() error
	IsRunning() bool
}

// Clock abstracts time acquisition so freshness decisions can run against a
// virtual clock in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}
