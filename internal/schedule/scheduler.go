// Package schedule abstracts delayed callbacks so progression can run on
// the wall clock in production and on a virtual clock in tests.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped a pending callback.
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Clock schedules on the wall clock.
type Clock struct{}

func (Clock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a virtual-clock scheduler. Callbacks only run from Advance or
// RunUntilIdle, on the calling goroutine, ordered by due time and then by
// scheduling order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	m       *Manual
	due     time.Duration
	seq     uint64
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManual returns a scheduler whose clock starts at zero.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, due: m.now + d, seq: m.seq, f: f}
	m.tasks = append(m.tasks, t)
	return t
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending counts callbacks that are scheduled and not stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// next pops the earliest live task due at or before limit. A negative
// limit means no limit.
func (m *Manual) next(limit time.Duration) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.tasks = live
	if len(m.tasks) == 0 {
		return nil
	}

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	t := m.tasks[0]
	if limit >= 0 && t.due > limit {
		return nil
	}
	t.fired = true
	m.tasks = m.tasks[1:]
	if t.due > m.now {
		m.now = t.due
	}
	return t
}

// Advance moves the clock forward by d, running every callback that
// becomes due, including ones scheduled by callbacks along the way.
func (m *Manual) Advance(d time.Duration) {
	limit := m.Now() + d
	for {
		t := m.next(limit)
		if t == nil {
			break
		}
		t.f()
	}
	m.mu.Lock()
	if m.now < limit {
		m.now = limit
	}
	m.mu.Unlock()
}

// RunUntilIdle runs callbacks in order until none remain, jumping the
// clock to each due time. It returns the number of callbacks run.
func (m *Manual) RunUntilIdle() int {
	n := 0
	for {
		t := m.next(-1)
		if t == nil {
			return n
		}
		t.f()
		n++
	}
}
