package tiles

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultOSMURL is the OpenStreetMap standard tile layer.
const DefaultOSMURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// OSMTileProvider downloads raster tiles from a slippy-map tile server.
type OSMTileProvider struct {
	client    *http.Client
	urlFormat string
	userAgent string
	log       zerolog.Logger
}

// NewOSMTileProvider builds a provider for urlFormat, which must contain the
// {z}, {x} and {y} placeholders. An empty format means DefaultOSMURL.
func NewOSMTileProvider(urlFormat, userAgent string, log zerolog.Logger) *OSMTileProvider {
	if urlFormat == "" {
		urlFormat = DefaultOSMURL
	}
	if userAgent == "" {
		userAgent = "gio-locate/1.0"
	}
	return &OSMTileProvider{
		client:    &http.Client{},
		urlFormat: urlFormat,
		userAgent: userAgent,
		log:       log,
	}
}

func (p *OSMTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	url := p.GetTileURL(tile)
	p.log.Debug().Str("url", url).Msg("requesting tile")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for tile %s: %w", GetTileKey(tile), err)
	}
	// the OSM tile usage policy requires an identifying user agent
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/png,image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", GetTileKey(tile), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tile %s: unexpected status code: %d", GetTileKey(tile), resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", GetTileKey(tile), err)
	}
	return img, nil
}

// GetTileURL returns the URL for downloading the map tile
func (p *OSMTileProvider) GetTileURL(tile Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(tile.Zoom),
		"{x}", strconv.Itoa(tile.X),
		"{y}", strconv.Itoa(tile.Y),
	).Replace(p.urlFormat)
}
