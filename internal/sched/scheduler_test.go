package sched

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestSchedulerTieBreakRegistrationOrder(t *testing.T) {
	s := New()
	var order []string
	s.ScheduleOnce(time.Second, func() { order = append(order, "A") })
	s.ScheduleOnce(time.Second, func() { order = append(order, "B") })
	if err := s.RunUntil(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"A", "B"}) {
		t.Fatalf("order = %v, want [A B]", order)
	}
}

func TestSchedulerTimeOrder(t *testing.T) {
	s := New()
	var order []string
	var times []time.Duration
	record := func(name string) func() {
		return func() {
			order = append(order, name)
			times = append(times, s.Now())
		}
	}
	s.ScheduleOnce(3*time.Second, record("c"))
	s.ScheduleOnce(time.Second, record("a"))
	s.ScheduleOnce(2*time.Second, record("b"))
	for s.Step() {
	}
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", order)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if !reflect.DeepEqual(times, want) {
		t.Fatalf("times = %v, want %v", times, want)
	}
	if s.Pending() != 0 {
		t.Fatalf("expected idle scheduler")
	}
}

func TestSchedulerPeriodic(t *testing.T) {
	s := New()
	var fired []time.Duration
	s.SchedulePeriodic(500*time.Millisecond, func() { fired = append(fired, s.Now()) })
	if err := s.RunUntil(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second, 1500 * time.Millisecond, 2 * time.Second}
	if !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired at %v, want %v", fired, want)
	}
	if s.Now() != 2*time.Second {
		t.Fatalf("now = %v", s.Now())
	}
	if s.Pending() != 1 {
		t.Fatalf("periodic action should stay pending, got %d", s.Pending())
	}
}

func TestSchedulerRelativeToNow(t *testing.T) {
	s := New()
	var at time.Duration
	s.ScheduleOnce(time.Second, func() {
		s.ScheduleOnce(250*time.Millisecond, func() { at = s.Now() })
	})
	_ = s.RunUntil(context.Background(), 5*time.Second)
	if at != 1250*time.Millisecond {
		t.Fatalf("nested action fired at %v", at)
	}
	if s.Now() != 5*time.Second {
		t.Fatalf("clock should end at 5s, got %v", s.Now())
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := New()
	var fired []string
	a := s.ScheduleOnce(time.Second, func() { fired = append(fired, "a") })
	b := s.ScheduleOnce(time.Second, func() { fired = append(fired, "b") })
	p := s.SchedulePeriodic(time.Second, func() { fired = append(fired, "p") })
	s.Cancel(a)
	s.Cancel(a)          // twice is fine
	s.Cancel(Handle(99)) // never issued
	_ = s.RunUntil(context.Background(), time.Second)
	s.Cancel(b) // already fired
	s.Cancel(p)
	_ = s.RunUntil(context.Background(), 3*time.Second)
	if !reflect.DeepEqual(fired, []string{"b", "p"}) {
		t.Fatalf("fired = %v, want [b p]", fired)
	}
	if s.Pending() != 0 {
		t.Fatalf("expected idle after cancelling periodic")
	}
}

func TestSchedulerPeriodicCancelsItself(t *testing.T) {
	s := New()
	n := 0
	var h Handle
	h = s.SchedulePeriodic(time.Second, func() {
		n++
		if n == 2 {
			s.Cancel(h)
		}
	})
	_ = s.RunUntil(context.Background(), 10*time.Second)
	if n != 2 {
		t.Fatalf("periodic fired %d times, want 2", n)
	}
}

func TestSchedulerRunUntilContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	s.SchedulePeriodic(time.Millisecond, func() {
		n++
		if n == 3 {
			cancel()
		}
	})
	err := s.RunUntil(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if n != 3 {
		t.Fatalf("fired %d times after cancel", n)
	}
}

func TestSchedulePeriodicPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New().SchedulePeriodic(0, func() {})
}
