package timers

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleFiresCallback(t *testing.T) {
	timer := Resettable{}

	fired := make(chan struct{})
	timer.Schedule(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for scheduled callback")
	}

	if timer.Pending() {
		t.Fatalf("expected no pending callback after firing")
	}
}

func TestCancelPreventsCallback(t *testing.T) {
	timer := Resettable{}

	fired := atomic.Int32{}
	timer.Schedule(10*time.Millisecond, func() { fired.Add(1) })
	timer.Cancel()

	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("expected cancelled callback not to fire, fired %d times", got)
	}
}

func TestRescheduleSupersedesPendingCallback(t *testing.T) {
	timer := Resettable{}

	first := atomic.Int32{}
	second := make(chan struct{})
	timer.Schedule(10*time.Millisecond, func() { first.Add(1) })
	timer.Schedule(20*time.Millisecond, func() { close(second) })

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for rescheduled callback")
	}

	if got := first.Load(); got != 0 {
		t.Fatalf("expected superseded callback not to fire, fired %d times", got)
	}
}

func TestCancelIdleHandleIsNoop(t *testing.T) {
	timer := Resettable{}
	timer.Cancel()
	timer.Cancel()

	if timer.Pending() {
		t.Fatalf("expected idle handle to stay idle")
	}
}
