package nfc

import (
	"sync"
	"time"
)

// Clock abstracts the time operations backends depend on, so session
// timing can be tested without real delays.
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// NewTicker creates a ticker firing at the given interval
	NewTicker(d time.Duration) Ticker

	// After returns a channel that receives a value after the duration
	After(d time.Duration) <-chan time.Time
}

// Ticker is an interface for time.Ticker to enable testing
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock implements Clock using actual time operations
type RealClock struct{}

// NewRealClock creates a new RealClock
func NewRealClock() Clock {
	return &RealClock{}
}

func (rc *RealClock) Now() time.Time {
	return time.Now()
}

func (rc *RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

func (rc *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type realTicker struct {
	ticker *time.Ticker
}

func (rt *realTicker) C() <-chan time.Time {
	return rt.ticker.C
}

func (rt *realTicker) Stop() {
	rt.ticker.Stop()
}

// FakeClock implements Clock for testing with controllable time.
type FakeClock struct {
	mu      sync.RWMutex
	now     time.Time
	tickers []*fakeTicker
	waiters []*fakeWaiter
}

// NewFakeClock creates a new FakeClock starting at the given time.
func NewFakeClock(startTime time.Time) *FakeClock {
	return &FakeClock{now: startTime}
}

func (fc *FakeClock) Now() time.Time {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.now
}

func (fc *FakeClock) NewTicker(d time.Duration) Ticker {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	ft := &fakeTicker{c: make(chan time.Time, 1)}
	fc.tickers = append(fc.tickers, ft)
	return ft
}

func (fc *FakeClock) After(d time.Duration) <-chan time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	w := &fakeWaiter{deadline: fc.now.Add(d), c: make(chan time.Time, 1)}
	fc.waiters = append(fc.waiters, w)
	return w.c
}

// Advance moves the fake clock forward and fires any tickers and waiters
// that are due. Ticker channels are buffered; a tick that finds the buffer
// full is dropped, matching time.Ticker behavior.
func (fc *FakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.now = fc.now.Add(d)

	for _, ticker := range fc.tickers {
		if ticker.stopped {
			continue
		}
		select {
		case ticker.c <- fc.now:
		default:
		}
	}

	for _, w := range fc.waiters {
		if w.fired || fc.now.Before(w.deadline) {
			continue
		}
		select {
		case w.c <- fc.now:
			w.fired = true
		default:
		}
	}
}

type fakeTicker struct {
	c       chan time.Time
	stopped bool
}

func (ft *fakeTicker) C() <-chan time.Time { return ft.c }
func (ft *fakeTicker) Stop()               { ft.stopped = true }

type fakeWaiter struct {
	deadline time.Time
	c        chan time.Time
	fired    bool
}
