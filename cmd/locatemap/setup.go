package main

import (
	"math"
	"time"

	"github.com/olablt/gio-locate/config"
	"github.com/olablt/gio-locate/geolocation"
	"github.com/olablt/gio-locate/geolocation/googlegeo"
	"github.com/olablt/gio-locate/geolocation/simulated"
	"github.com/olablt/gio-locate/tiles"
	"github.com/rs/zerolog"
)

const (
	routePoints = 24
	// route radius in degrees of latitude, roughly 550 m
	routeRadius = 0.005
)

func newPositionProvider(cfg *config.Config, log zerolog.Logger) (geolocation.Provider, func(), error) {
	switch cfg.Provider.Kind {
	case config.ProviderGoogle:
		p, err := googlegeo.New(googlegeo.Options{APIKey: cfg.Provider.APIKey, Logger: log})
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	default:
		p := simulated.New(simulated.Options{
			Route:       simulatedRoute(cfg.Provider.Start.LatLng()),
			Accuracy:    25,
			PromptDelay: time.Duration(cfg.Provider.PromptDelayMs) * time.Millisecond,
			Interval:    time.Second,
		})
		return p, func() {}, nil
	}
}

// simulatedRoute walks a loop whose southernmost point is start.
func simulatedRoute(start tiles.LatLng) []tiles.LatLng {
	lngScale := math.Cos(start.Lat * math.Pi / 180)
	if lngScale < 0.01 {
		lngScale = 0.01
	}
	route := make([]tiles.LatLng, routePoints)
	for i := range route {
		a := 2 * math.Pi * float64(i) / routePoints
		route[i] = tiles.LatLng{
			Lat: start.Lat + routeRadius*(1-math.Cos(a)),
			Lng: start.Lng + routeRadius*math.Sin(a)/lngScale,
		}
	}
	return route
}

func newTileManager(cfg *config.Config, log zerolog.Logger) *tiles.TileManager {
	var provider tiles.TileProvider = tiles.NewLocalTileProvider()
	if cfg.Tiles.Source == config.TilesOSM {
		osm := tiles.NewOSMTileProvider(cfg.Tiles.URL, cfg.Tiles.UserAgent, log)
		provider = tiles.NewCombinedTileProvider(osm, provider, log)
	}
	return tiles.NewTileManager(provider, tiles.ManagerOptions{Logger: log})
}
