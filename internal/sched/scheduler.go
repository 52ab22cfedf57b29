// Package sched drives virtual simulation time on a single cooperative
// timeline.
package sched

import (
	"container/heap"
	"context"
	"time"
)

// Tick is the smallest step of virtual time.
const Tick = time.Microsecond

// Handle identifies a scheduled action. The zero Handle is never issued.
type Handle uint64

type action struct {
	handle   Handle
	at       time.Duration
	seq      uint64
	interval time.Duration // zero for one-shot actions
	fn       func()
	index    int
}

// actionQueue orders actions by trigger time, then registration sequence.
type actionQueue []*action

func (q actionQueue) Len() int { return len(q) }

func (q actionQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q actionQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *actionQueue) Push(x any) {
	a := x.(*action)
	a.index = len(*q)
	*q = append(*q, a)
}

func (q *actionQueue) Pop() any {
	old := *q
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	a.index = -1
	*q = old[:n-1]
	return a
}

// Scheduler fires registered actions in time order. Actions due at the same
// time fire in registration order. It is not safe for concurrent use; all
// calls, including those made from inside actions, belong to one goroutine.
type Scheduler struct {
	now        time.Duration
	seq        uint64
	nextHandle Handle
	queue      actionQueue
	live       map[Handle]*action
}

// New returns an idle scheduler at virtual time zero.
func New() *Scheduler {
	return &Scheduler{live: make(map[Handle]*action)}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Pending returns the number of scheduled actions.
func (s *Scheduler) Pending() int { return len(s.queue) }

// ScheduleOnce runs fn once, delay after the current time. Negative delays
// are treated as zero.
func (s *Scheduler) ScheduleOnce(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	return s.push(s.now+delay, 0, fn)
}

// SchedulePeriodic runs fn every interval, starting interval after the
// current time. It panics if interval is not positive.
func (s *Scheduler) SchedulePeriodic(interval time.Duration, fn func()) Handle {
	if interval <= 0 {
		panic("sched: non-positive interval for SchedulePeriodic")
	}
	return s.push(s.now+interval, interval, fn)
}

func (s *Scheduler) push(at, interval time.Duration, fn func()) Handle {
	s.nextHandle++
	a := &action{handle: s.nextHandle, at: at, interval: interval, fn: fn}
	s.enqueue(a)
	s.live[a.handle] = a
	return a.handle
}

func (s *Scheduler) enqueue(a *action) {
	s.seq++
	a.seq = s.seq
	heap.Push(&s.queue, a)
}

// Cancel withdraws an action. Unknown handles and one-shot actions that
// already fired are ignored.
func (s *Scheduler) Cancel(h Handle) {
	a, ok := s.live[h]
	if !ok {
		return
	}
	delete(s.live, h)
	if a.index >= 0 {
		heap.Remove(&s.queue, a.index)
	}
}

// Step fires the earliest action and advances time to its trigger. It
// returns false when nothing is scheduled.
func (s *Scheduler) Step() bool {
	if len(s.queue) == 0 {
		return false
	}
	a := heap.Pop(&s.queue).(*action)
	s.now = a.at
	if a.interval == 0 {
		delete(s.live, a.handle)
	}
	if a.fn != nil {
		a.fn()
	}
	// periodic actions come back unless the callback cancelled them
	if a.interval > 0 && s.live[a.handle] == a {
		a.at = s.now + a.interval
		s.enqueue(a)
	}
	return true
}

// RunUntil fires every action due at or before end, then moves the clock to
// end. It stops early with the context error if ctx is cancelled.
func (s *Scheduler) RunUntil(ctx context.Context, end time.Duration) error {
	for len(s.queue) > 0 && s.queue[0].at <= end {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step()
	}
	if s.now < end {
		s.now = end
	}
	return nil
}
