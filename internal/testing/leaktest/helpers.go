// Package leaktest checks that code under test does not leave goroutines behind.
package leaktest

import (
	"runtime"
	"testing"
	"time"
)

// GoroutineChecker records the goroutine count at creation and compares against it later
type GoroutineChecker struct {
	before int
	t      testing.TB
}

// NewGoroutineChecker creates a checker after letting background goroutines settle
func NewGoroutineChecker(t testing.TB) *GoroutineChecker {
	t.Helper()

	runtime.Gosched()
	time.Sleep(10 * time.Millisecond)

	return &GoroutineChecker{
		before: runtime.NumGoroutine(),
		t:      t,
	}
}

// Check fails the test if more than tolerance goroutines are still alive after timeout
func (g *GoroutineChecker) Check(tolerance int, timeout time.Duration) {
	g.t.Helper()

	deadline := time.Now().Add(timeout)
	var after int
	for {
		runtime.Gosched()
		after = runtime.NumGoroutine()
		if after-g.before <= tolerance || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if leaked := after - g.before; leaked > tolerance {
		g.t.Errorf("Potential goroutine leak: before=%d, after=%d, leaked=%d (tolerance=%d)",
			g.before, after, leaked, tolerance)
	}
}

// CheckNoGoroutineLeak runs fn and requires the goroutine count to return to its starting value
func CheckNoGoroutineLeak(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()

	checker := NewGoroutineChecker(t)
	fn()
	checker.Check(0, timeout)
}
