package sim

import (
	"sort"
	"sync"
	"time"
)

// ManualClock only moves when Advance is called. Tickers and timers fire
// synchronously from Advance, in deadline order.
type ManualClock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Time
	tickers []*manualTicker
	waiters []*waiter
	created int
}

type waiter struct {
	at time.Time
	ch chan time.Time
}

type manualTicker struct {
	clock   *ManualClock
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	c := &ManualClock{now: start}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{clock: c, period: d, next: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	c.created++
	c.cond.Broadcast()
	return t
}

func (c *ManualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, &waiter{at: c.now.Add(d), ch: ch})
	c.cond.Broadcast()
	return ch
}

// Advance moves the clock forward by d, firing every ticker period and timer
// that falls due. A ticker whose channel is full drops the tick, as
// time.Ticker does.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.now.Add(d)
	for {
		at, fire := c.nextDue(target)
		if fire == nil {
			break
		}
		c.now = at
		fire()
	}
	c.now = target
}

// nextDue returns the earliest deadline not after target and a func that
// fires it. Callers hold c.mu.
func (c *ManualClock) nextDue(target time.Time) (time.Time, func()) {
	var (
		best time.Time
		fire func()
	)

	for _, t := range c.tickers {
		if t.stopped || t.next.After(target) {
			continue
		}
		if fire == nil || t.next.Before(best) {
			best = t.next
			tk := t
			fire = func() {
				select {
				case tk.ch <- tk.next:
				default:
				}
				tk.next = tk.next.Add(tk.period)
			}
		}
	}

	sort.SliceStable(c.waiters, func(i, j int) bool { return c.waiters[i].at.Before(c.waiters[j].at) })
	if len(c.waiters) > 0 {
		w := c.waiters[0]
		if !w.at.After(target) && (fire == nil || !best.Before(w.at)) {
			best = w.at
			fire = func() {
				w.ch <- w.at
				c.waiters = c.waiters[1:]
			}
		}
	}

	return best, fire
}

// Tickers returns the number of tickers created over the clock lifetime.
func (c *ManualClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// Active returns the number of tickers that have not been stopped.
func (c *ManualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// BlockUntilWaiters blocks until at least n timers are pending.
func (c *ManualClock) BlockUntilWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.waiters) < n {
		c.cond.Wait()
	}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}
