package tiles

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"
)

// CombinedTileProvider serves tiles from primary and falls back to fallback
// when primary fails, e.g. when offline.
type CombinedTileProvider struct {
	primary  TileProvider
	fallback TileProvider
	log      zerolog.Logger
}

func NewCombinedTileProvider(primary, fallback TileProvider, log zerolog.Logger) *CombinedTileProvider {
	return &CombinedTileProvider{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

func (p *CombinedTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	img, err := p.primary.GetTile(ctx, tile)
	if err == nil {
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.log.Debug().Err(err).Str("tile", GetTileKey(tile)).Msg("primary tile provider failed, using fallback")

	img, fbErr := p.fallback.GetTile(ctx, tile)
	if fbErr != nil {
		return nil, fmt.Errorf("both primary and fallback providers failed: %w, %w", err, fbErr)
	}
	return img, nil
}
