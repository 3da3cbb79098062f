package tiles

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"sync"

	"gioui.org/op/paint"
	"github.com/olablt/gio-locate/tiles/worker"
	"github.com/rs/zerolog"
)

type TileProvider interface {
	GetTile(ctx context.Context, tile Tile) (image.Image, error)
}

// TileManager loads tiles in the background and hands out ready-to-paint
// image operations. Lookups never block on the network.
type TileManager struct {
	cache    *ImageOpCache
	provider TileProvider
	pool     *worker.Pool
	log      zerolog.Logger

	mu      sync.Mutex
	loading map[Tile]bool
	onLoad  func()
}

type ManagerOptions struct {
	CacheCapacity int
	Workers       int
	Logger        zerolog.Logger
}

func NewTileManager(provider TileProvider, opts ManagerOptions) *TileManager {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &TileManager{
		cache:    NewCache[paint.ImageOp](opts.CacheCapacity),
		provider: provider,
		pool:     worker.NewPool(opts.Workers, 256),
		log:      opts.Logger.With().Str("component", "tiles").Logger(),
		loading:  make(map[Tile]bool),
	}
}

func (tm *TileManager) Cache() *ImageOpCache {
	return tm.cache
}

// SetOnLoadCallback registers fn to be called from a worker goroutine each
// time a tile finishes loading.
func (tm *TileManager) SetOnLoadCallback(fn func()) {
	tm.mu.Lock()
	tm.onLoad = fn
	tm.mu.Unlock()
}

// GetTileKey returns a unique string key for a tile
func GetTileKey(tile Tile) string {
	return fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y)
}

// GetTile returns the paint operation for tile if it is cached. Otherwise it
// schedules a load and reports false.
func (tm *TileManager) GetTile(tile Tile) (paint.ImageOp, bool) {
	if op, ok := tm.cache.Get(tile); ok {
		return op, true
	}
	tm.Prefetch(context.Background(), tile)
	return paint.ImageOp{}, false
}

// Prefetch schedules loading of every tile that is neither cached nor
// already in flight.
func (tm *TileManager) Prefetch(ctx context.Context, tiles ...Tile) {
	for _, tile := range tiles {
		if _, ok := tm.cache.Get(tile); ok {
			continue
		}
		tm.mu.Lock()
		if tm.loading[tile] {
			tm.mu.Unlock()
			continue
		}
		tm.loading[tile] = true
		tm.mu.Unlock()

		tile := tile
		err := tm.pool.Submit(worker.Task{
			Ctx:  ctx,
			Work: func(ctx context.Context) error { return tm.load(ctx, tile) },
			Done: func(err error) {
				tm.mu.Lock()
				delete(tm.loading, tile)
				onLoad := tm.onLoad
				tm.mu.Unlock()
				if err != nil {
					tm.log.Debug().Err(err).Str("tile", GetTileKey(tile)).Msg("tile load failed")
					return
				}
				if onLoad != nil {
					onLoad()
				}
			},
		})
		if err != nil {
			tm.mu.Lock()
			delete(tm.loading, tile)
			tm.mu.Unlock()
			tm.log.Debug().Err(err).Str("tile", GetTileKey(tile)).Msg("tile load not scheduled")
		}
	}
}

func (tm *TileManager) load(ctx context.Context, tile Tile) error {
	img, err := tm.provider.GetTile(ctx, tile)
	if err != nil {
		return err
	}
	tm.cache.Set(tile, paint.NewImageOp(img))
	return nil
}

// Close stops the background loaders.
func (tm *TileManager) Close() {
	tm.pool.Shutdown()
}
