// Package geotest provides a scripted geolocation.Provider and a manual
// clock for deterministic session tests.
package geotest

import (
	"sort"
	"sync"
	"time"

	"github.com/olablt/gio-locate/geolocation"
	"github.com/olablt/gio-locate/tiles"
)

// FakeClock fires timers only when Advance moves time past their deadline.
// All methods are safe for concurrent use.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

var _ geolocation.Clock = (*FakeClock)(nil)

// NewFakeClock returns a FakeClock starting at a fixed epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) geolocation.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d and runs every timer that became due,
// earliest first, on the calling goroutine.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, pending []*fakeTimer
	for _, t := range c.timers {
		if !t.deadline.After(c.now) {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, t := range due {
		t.fn()
	}
}

// Pending is the number of armed timers.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	fn       func()
}

func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Provider records requests and watches so a test can answer them later.
type Provider struct {
	mu       sync.Mutex
	requests []*Request
	watches  []*Watch

	// OnRequest, if set, runs at the end of GetCurrentPosition, e.g. to
	// answer synchronously.
	OnRequest func(r *Request)
}

var _ geolocation.Provider = (*Provider)(nil)

func (p *Provider) GetCurrentPosition(onSuccess func(geolocation.Position), onError func(error)) {
	r := &Request{onSuccess: onSuccess, onError: onError}
	p.mu.Lock()
	p.requests = append(p.requests, r)
	hook := p.OnRequest
	p.mu.Unlock()
	if hook != nil {
		hook(r)
	}
}

func (p *Provider) WatchPosition(onSuccess func(geolocation.Position), onError func(error)) func() {
	w := &Watch{onSuccess: onSuccess, onError: onError}
	p.mu.Lock()
	p.watches = append(p.watches, w)
	p.mu.Unlock()
	return w.cancel
}

// Requests is the number of one-shot requests received.
func (p *Provider) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// LastRequest returns the most recent one-shot request, or nil.
func (p *Provider) LastRequest() *Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

// Watches is the number of watches started.
func (p *Provider) Watches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watches)
}

// LastWatch returns the most recent watch, or nil.
func (p *Provider) LastWatch() *Watch {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.watches) == 0 {
		return nil
	}
	return p.watches[len(p.watches)-1]
}

// Request is one pending GetCurrentPosition call.
type Request struct {
	onSuccess func(geolocation.Position)
	onError   func(error)
}

// Succeed delivers a fix at lat, lng.
func (r *Request) Succeed(lat, lng float64) {
	r.onSuccess(At(lat, lng))
}

func (r *Request) SucceedWith(p geolocation.Position) {
	r.onSuccess(p)
}

func (r *Request) Fail(err error) {
	r.onError(err)
}

// Watch is one WatchPosition subscription. Emit and Fail deliver even after
// cancellation, to mimic callbacks already queued by the platform.
type Watch struct {
	mu        sync.Mutex
	cancelled bool
	onSuccess func(geolocation.Position)
	onError   func(error)
}

func (w *Watch) Emit(lat, lng float64) {
	w.onSuccess(At(lat, lng))
}

func (w *Watch) Fail(err error) {
	w.onError(err)
}

func (w *Watch) Cancelled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancelled
}

func (w *Watch) cancel() {
	w.mu.Lock()
	w.cancelled = true
	w.mu.Unlock()
}

// At builds a Position with no accuracy information.
func At(lat, lng float64) geolocation.Position {
	return geolocation.Position{Coordinate: tiles.LatLng{Lat: lat, Lng: lng}}
}
