// Package clockpkg provides an injectable source of time and one-shot timers.
package clockpkg

import (
	"sort"
	"sync"
	"time"
)

// Timer is a scheduled one-shot callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call stopped the timer.
	Stop() bool
}

// Clock tells the current time and schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall clock.
type Real struct{}

// Now returns the current UTC time.
func (Real) Now() time.Time {
	return time.Now().UTC()
}

// AfterFunc runs f in its own goroutine after d.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Fake is a manually driven clock used in tests.
// Callbacks scheduled with AfterFunc fire synchronously from Advance or Set.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	nextSeq int
	timers  []*fakeTimer
}

// NewFake returns a fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// AfterFunc schedules f to run once the fake time reaches Now()+d.
func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSeq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.nextSeq, f: f}
	c.timers = append(c.timers, t)

	return t
}

// Advance moves the fake time forward by d and fires every due timer.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	c.Set(target)
}

// Set moves the fake time to t and fires every due timer in schedule order.
func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	c.now = t

	var due, pending []*fakeTimer

	for _, timer := range c.timers {
		if !timer.at.After(t) {
			due = append(due, timer)
		} else {
			pending = append(pending, timer)
		}
	}

	c.timers = pending
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}

		return due[i].at.Before(due[j].at)
	})

	for _, timer := range due {
		timer.f()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.timers)
}

type fakeTimer struct {
	clock *Fake
	at    time.Time
	seq   int
	f     func()
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	for i, timer := range t.clock.timers {
		if timer == t {
			t.clock.timers = append(t.clock.timers[:i], t.clock.timers[i+1:]...)
			return true
		}
	}

	return false
}
