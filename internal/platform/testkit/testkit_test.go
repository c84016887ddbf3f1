package testkit

import (
	"sync/atomic"
	"testing"
	"time"
)

var seamFn = func() string { return "real" }

func TestSwapRestores(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &seamFn, func() string { return "fake" })
		if got := seamFn(); got != "fake" {
			t.Fatalf("got %q want fake", got)
		}
	})
	if got := seamFn(); got != "real" {
		t.Fatalf("not restored, got %q", got)
	}
}

func TestPanicHelpers(t *testing.T) {
	t.Parallel()
	MustPanic(t, func() { panic("boom") })
	MustNotPanic(t, func() {})
	MustContain(t, "rate limit exceeded", "rate", "exceeded")
}

func TestEventually(t *testing.T) {
	t.Parallel()
	var n atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		n.Store(1)
	}()
	Eventually(t, time.Second, func() bool { return n.Load() == 1 }, "flag set")
}
