// Package pool holds reusable deadline timers for the read path.
package pool

import (
	"sync"
	"time"
)

var timers = sync.Pool{
	New: func() any {
		t := time.NewTimer(time.Hour)
		t.Stop()

		return t
	},
}

// AcquireTimer returns a stopped pooled timer re-armed to fire after d.
//
// Since Go 1.23 Reset and Stop discard any pending tick, so a recycled timer
// never delivers a value left over from its previous user.
func AcquireTimer(d time.Duration) *time.Timer {
	t, _ := timers.Get().(*time.Timer)
	t.Reset(d)

	return t
}

// ReleaseTimer stops t and returns it to the pool. t must not be used after.
func ReleaseTimer(t *time.Timer) {
	if t == nil {
		return
	}

	t.Stop()
	timers.Put(t)
}
