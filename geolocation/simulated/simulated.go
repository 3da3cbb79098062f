// Package simulated is a geolocation.Provider that replays a fixed route,
// for demos and for running without location hardware.
package simulated

import (
	"sync"
	"time"

	"github.com/olablt/gio-locate/geolocation"
	"github.com/olablt/gio-locate/tiles"
)

type Options struct {
	// Route is replayed in order and then repeats. It must not be empty
	// unless Deny is set.
	Route []tiles.LatLng
	// Accuracy is reported with every fix.
	Accuracy float64
	// PromptDelay is how long the simulated user takes to answer the
	// permission prompt.
	PromptDelay time.Duration
	// Interval between watch updates.
	Interval time.Duration
	// Deny makes every request fail with PERMISSION_DENIED after PromptDelay.
	Deny bool
	// Now defaults to time.Now.
	Now func() time.Time
}

type Provider struct {
	opts Options

	mu   sync.Mutex
	next int
}

var _ geolocation.Provider = (*Provider)(nil)

func New(opts Options) *Provider {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{opts: opts}
}

func (p *Provider) GetCurrentPosition(onSuccess func(geolocation.Position), onError func(error)) {
	time.AfterFunc(p.opts.PromptDelay, func() {
		if err := p.check(); err != nil {
			onError(err)
			return
		}
		onSuccess(p.advance())
	})
}

func (p *Provider) WatchPosition(onSuccess func(geolocation.Position), onError func(error)) func() {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		select {
		case <-time.After(p.opts.PromptDelay):
		case <-done:
			return
		}
		if err := p.check(); err != nil {
			onError(err)
			return
		}
		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()
		for {
			onSuccess(p.advance())
			select {
			case <-ticker.C:
			case <-done:
				return
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

func (p *Provider) check() error {
	if p.opts.Deny {
		return geolocation.NewPositionError(geolocation.CodePermissionDenied, "")
	}
	if len(p.opts.Route) == 0 {
		return geolocation.NewPositionError(geolocation.CodePositionUnavailable, "simulated route is empty")
	}
	return nil
}

func (p *Provider) advance() geolocation.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos := p.opts.Route[p.next%len(p.opts.Route)]
	p.next++
	return geolocation.Position{
		Coordinate: pos,
		Accuracy:   p.opts.Accuracy,
		Timestamp:  p.opts.Now(),
	}
}
