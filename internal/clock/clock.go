// Package clock provides the cooperative scheduler every animated component runs on.
//
// Time is virtual: it only moves when the owner calls Advance, which makes the same code
// deterministic in tests and frame-driven in the TUI. All callbacks run on the goroutine
// calling Advance or Drain. Other goroutines hand work back through Group.Post.
package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Scheduler owns the virtual clock, the timer queue and the posted-callback mailbox.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers timerQueue
	posted []*entry
	wake   chan struct{}
}

// New returns a scheduler at virtual time zero.
func New() *Scheduler {
	return &Scheduler{wake: make(chan struct{}, 1)}
}

// Now reports the current virtual time.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Wake is signalled whenever a callback is posted from another goroutine.
func (s *Scheduler) Wake() <-chan struct{} { return s.wake }

// Pending reports the number of live timers and posted callbacks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers) + len(s.posted)
}

// NewGroup creates a cancellation scope for timers and posts.
func (s *Scheduler) NewGroup() *Group {
	return &Group{s: s, live: make(map[*entry]struct{})}
}

// Drain runs every posted callback without moving time.
func (s *Scheduler) Drain() {
	for {
		s.mu.Lock()
		if len(s.posted) == 0 {
			s.mu.Unlock()
			return
		}
		e := s.posted[0]
		s.posted = s.posted[1:]
		s.detach(e)
		s.mu.Unlock()
		e.fn()
	}
}

// Advance moves virtual time forward by d, firing due timers in deadline order.
// Timers scheduled by callbacks fire within the same call when they fall due before the target.
func (s *Scheduler) Advance(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.Drain()
		s.mu.Lock()
		if len(s.timers) == 0 || s.timers[0].at > target {
			s.now = target
			s.mu.Unlock()
			s.Drain()
			return
		}
		e := heap.Pop(&s.timers).(*entry)
		s.detach(e)
		s.now = e.at
		s.mu.Unlock()
		e.fn()
	}
}

// detach unlinks e from its group. Caller holds s.mu.
func (s *Scheduler) detach(e *entry) {
	e.done = true
	if e.g != nil {
		delete(e.g.live, e)
	}
}

// Group scopes a chain of timers and posts so they can be torn down together.
type Group struct {
	s         *Scheduler
	live      map[*entry]struct{}
	cancelled bool
}

// After schedules fn to run d after the current virtual time.
// On a cancelled group it returns an inert timer.
func (g *Group) After(d time.Duration, fn func()) *Timer {
	s := g.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.cancelled {
		return &Timer{}
	}
	if d < 0 {
		d = 0
	}
	s.seq++
	e := &entry{at: s.now + d, seq: s.seq, fn: fn, g: g, index: -1}
	heap.Push(&s.timers, e)
	g.live[e] = struct{}{}
	return &Timer{s: s, e: e}
}

// Post queues fn to run on the scheduler's goroutine. Safe for concurrent use.
// It reports false when the group was already cancelled and fn was dropped.
func (g *Group) Post(fn func()) bool {
	s := g.s
	s.mu.Lock()
	if g.cancelled {
		s.mu.Unlock()
		return false
	}
	s.seq++
	e := &entry{seq: s.seq, fn: fn, g: g, index: -1, post: true}
	s.posted = append(s.posted, e)
	g.live[e] = struct{}{}
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Cancel removes every pending timer and post of the group and refuses new ones.
func (g *Group) Cancel() {
	s := g.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.cancelled {
		return
	}
	g.cancelled = true
	for e := range g.live {
		s.remove(e)
	}
	clear(g.live)
}

// Cancelled reports whether Cancel was called.
func (g *Group) Cancelled() bool {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	return g.cancelled
}

// remove unschedules e. Caller holds s.mu.
func (s *Scheduler) remove(e *entry) {
	if e.done {
		return
	}
	e.done = true
	if e.post {
		for i, p := range s.posted {
			if p == e {
				s.posted = append(s.posted[:i], s.posted[i+1:]...)
				break
			}
		}
		return
	}
	if e.index >= 0 {
		heap.Remove(&s.timers, e.index)
	}
}

// Timer is a handle to one scheduled callback.
type Timer struct {
	s *Scheduler
	e *entry
}

// Cancel unschedules the timer. Safe on fired, cancelled, or zero timers.
func (t *Timer) Cancel() {
	if t == nil || t.e == nil {
		return
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.e.g != nil {
		delete(t.e.g.live, t.e)
	}
	t.s.remove(t.e)
}

// Active reports whether the timer is still waiting to fire.
func (t *Timer) Active() bool {
	if t == nil || t.e == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return !t.e.done
}

type entry struct {
	at    time.Duration
	seq   uint64
	fn    func()
	g     *Group
	index int
	post  bool
	done  bool
}

type timerQueue []*entry

func (q timerQueue) Len() int { return len(q) }
func (q timerQueue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *timerQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
