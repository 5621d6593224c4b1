package schedule

import (
	"sync"
	"time"
)

// Gate holds back every callback of the wrapped scheduler until Open is
// called. Delays still run from the moment AfterFunc is called.
type Gate struct {
	s    Scheduler
	open chan struct{}
	once sync.Once
}

func NewGate(s Scheduler) *Gate {
	return &Gate{s: s, open: make(chan struct{})}
}

func (g *Gate) AfterFunc(d time.Duration, f func()) Timer {
	return g.s.AfterFunc(d, func() {
		<-g.open
		f()
	})
}

// Open releases held callbacks. It is safe to call more than once.
func (g *Gate) Open() {
	g.once.Do(func() { close(g.open) })
}
