// Package clock abstracts wall-clock time so billing-period rollover is
// testable without waiting for a real month boundary.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystem returns the real wall clock.
func NewSystem() Clock { return systemClock{} }

var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)

// Period formats t as the YYYY-MM billing-cycle bucket.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Day formats t as the YYYY-MM-DD daily-breakdown key.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
