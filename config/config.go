package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olablt/gio-locate/mapwidget"
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/tiles"
	"github.com/spf13/viper"
)

const (
	ProviderSimulated = "simulated"
	ProviderGoogle    = "google"

	TilesOSM   = "osm"
	TilesLocal = "local"
)

type Config struct {
	LogLevel string `json:"logLevel" mapstructure:"logLevel"`

	GeolocatorWaitTimeoutMs int `json:"geolocatorWaitTimeoutMs" mapstructure:"geolocatorWaitTimeoutMs"`
	FocusedZoomLevel        int `json:"focusedZoomLevel" mapstructure:"focusedZoomLevel"`
	MinFocusedZoomLevel     int `json:"minFocusedZoomLevel" mapstructure:"minFocusedZoomLevel"`

	Map      MapConfig      `json:"map" mapstructure:"map"`
	Tiles    TilesConfig    `json:"tiles" mapstructure:"tiles"`
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`
}

type Point struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lng float64 `json:"lng" mapstructure:"lng"`
}

func (p Point) LatLng() tiles.LatLng { return tiles.LatLng{Lat: p.Lat, Lng: p.Lng} }

type MapConfig struct {
	Center Point `json:"center" mapstructure:"center"`
	Zoom   int   `json:"zoom" mapstructure:"zoom"`
}

type TilesConfig struct {
	// Source is "osm" or "local".
	Source    string `json:"source" mapstructure:"source"`
	URL       string `json:"url" mapstructure:"url"`
	UserAgent string `json:"userAgent" mapstructure:"userAgent"`
}

type ProviderConfig struct {
	// Kind is "simulated" or "google".
	Kind   string `json:"kind" mapstructure:"kind"`
	APIKey string `json:"apiKey" mapstructure:"apiKey"`
	// Start is where the simulated route begins.
	Start Point `json:"start" mapstructure:"start"`
	// PromptDelayMs is how long the simulated permission prompt stays open.
	PromptDelayMs int `json:"promptDelayMs" mapstructure:"promptDelayMs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")

	v.SetDefault("geolocatorWaitTimeoutMs", 3000)
	v.SetDefault("focusedZoomLevel", 15)
	v.SetDefault("minFocusedZoomLevel", 5)

	v.SetDefault("map.center.lat", 0.0)
	v.SetDefault("map.center.lng", 0.0)
	v.SetDefault("map.zoom", 2)

	v.SetDefault("tiles.source", TilesOSM)
	v.SetDefault("tiles.url", tiles.DefaultOSMURL)
	v.SetDefault("tiles.userAgent", "gio-locate/1.0")

	v.SetDefault("provider.kind", ProviderSimulated)
	v.SetDefault("provider.apiKey", "")
	v.SetDefault("provider.start.lat", 54.6872)
	v.SetDefault("provider.start.lng", 25.2797)
	v.SetDefault("provider.promptDelayMs", 1000)
}

// Load reads path, a JSON file, over the defaults. An empty path loads the
// defaults only. Environment variables prefixed LOCATEMAP_ override both,
// e.g. LOCATEMAP_PROVIDER_APIKEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("locatemap")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.GeolocatorWaitTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("geolocatorWaitTimeoutMs must be positive, got %d", c.GeolocatorWaitTimeoutMs))
	}
	// zero means "use the default" to the widget, so it is not a valid setting
	if c.FocusedZoomLevel < 1 {
		errs = append(errs, fmt.Errorf("focusedZoomLevel must be at least 1, got %d", c.FocusedZoomLevel))
	}
	if c.MinFocusedZoomLevel < 1 {
		errs = append(errs, fmt.Errorf("minFocusedZoomLevel must be at least 1, got %d", c.MinFocusedZoomLevel))
	}
	if c.MinFocusedZoomLevel > c.FocusedZoomLevel {
		errs = append(errs, fmt.Errorf("minFocusedZoomLevel %d exceeds focusedZoomLevel %d", c.MinFocusedZoomLevel, c.FocusedZoomLevel))
	}
	switch c.Tiles.Source {
	case TilesOSM, TilesLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown tiles.source %q", c.Tiles.Source))
	}
	switch c.Provider.Kind {
	case ProviderSimulated:
	case ProviderGoogle:
		if c.Provider.APIKey == "" {
			errs = append(errs, errors.New("provider.apiKey is required for the google provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider.kind %q", c.Provider.Kind))
	}
	return errors.Join(errs...)
}

// WidgetOptions returns widget options carrying the configured tunables.
// Callbacks and plumbing are left for the caller.
func (c *Config) WidgetOptions() mapwidget.Options {
	opts := mapwidget.DefaultOptions()
	opts.GeolocatorWaitTimeout = time.Duration(c.GeolocatorWaitTimeoutMs) * time.Millisecond
	opts.FocusedZoomLevel = c.FocusedZoomLevel
	opts.MinFocusedZoomLevel = c.MinFocusedZoomLevel
	return opts
}

func (c *Config) MapOptions() surface.MapOptions {
	opts := surface.DefaultMapOptions()
	opts.Center = c.Map.Center.LatLng()
	opts.Zoom = c.Map.Zoom
	return opts
}
