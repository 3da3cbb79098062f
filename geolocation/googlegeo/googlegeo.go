// Package googlegeo locates the device through the Google Maps Geolocation
// API. The service estimates position from the caller's IP address, so it
// needs no location permission and only ever answers with success or error.
package googlegeo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/olablt/gio-locate/geolocation"
	"github.com/olablt/gio-locate/tiles"
	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultPollInterval   = 30 * time.Second
)

// geolocator is the part of *maps.Client the provider uses.
type geolocator interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

type Options struct {
	APIKey         string
	RequestTimeout time.Duration
	// PollInterval is how often WatchPosition asks for a new fix.
	PollInterval time.Duration
	Logger       zerolog.Logger
}

type Provider struct {
	client   geolocator
	timeout  time.Duration
	interval time.Duration
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

var _ geolocation.Provider = (*Provider)(nil)

func New(opts Options) (*Provider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("googlegeo: API key cannot be empty")
	}
	client, err := maps.NewClient(maps.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("googlegeo: create maps client: %w", err)
	}
	return newProvider(client, opts), nil
}

func newProvider(client geolocator, opts Options) *Provider {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Provider{
		client:   client,
		timeout:  opts.RequestTimeout,
		interval: opts.PollInterval,
		log:      opts.Logger.With().Str("component", "googlegeo").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *Provider) GetCurrentPosition(onSuccess func(geolocation.Position), onError func(error)) {
	go func() {
		pos, err := p.locate(p.ctx)
		if err != nil {
			onError(err)
			return
		}
		onSuccess(pos)
	}()
}

func (p *Provider) WatchPosition(onSuccess func(geolocation.Position), onError func(error)) func() {
	ctx, cancel := context.WithCancel(p.ctx)
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			pos, err := p.locate(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				onError(err)
			} else {
				onSuccess(pos)
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return cancel
}

// Close cancels every outstanding request and watch.
func (p *Provider) Close() error {
	p.cancel()
	return nil
}

func (p *Provider) locate(ctx context.Context) (geolocation.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		p.log.Warn().Err(err).Msg("geolocate failed")
		code := geolocation.CodePositionUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = geolocation.CodeTimeout
		}
		return geolocation.Position{}, geolocation.NewPositionError(code, err.Error())
	}
	pos := geolocation.Position{
		Coordinate: tiles.LatLng{Lat: resp.Location.Lat, Lng: resp.Location.Lng},
		Accuracy:   resp.Accuracy,
		Timestamp:  time.Now(),
	}
	p.log.Debug().Stringer("position", pos.Coordinate).Float64("accuracy", pos.Accuracy).Msg("geolocated")
	return pos, nil
}
