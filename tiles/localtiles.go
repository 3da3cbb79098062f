package tiles

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LocalTileProvider renders placeholder tiles labelled with their
// zoom/x/y address. It never touches the network.
type LocalTileProvider struct {
	Background color.RGBA
}

func NewLocalTileProvider() *LocalTileProvider {
	return &LocalTileProvider{Background: color.RGBA{200, 220, 255, 255}}
}

func (p *LocalTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{p.Background}, image.Point{}, draw.Src)

	drawLabel(img, GetTileKey(tile))

	borderColor := color.RGBA{100, 100, 100, 255}
	borders := []image.Rectangle{
		image.Rect(0, 0, TileSize, 1),
		image.Rect(0, TileSize-1, TileSize, TileSize),
		image.Rect(0, 0, 1, TileSize),
		image.Rect(TileSize-1, 0, TileSize, TileSize),
	}
	for _, rect := range borders {
		draw.Draw(img, rect, &image.Uniform{borderColor}, image.Point{}, draw.Src)
	}
	return img, nil
}

func drawLabel(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	textWidth := d.MeasureString(text).Round()
	textHeight := face.Metrics().Height.Round()
	mid := TileSize / 2

	padding := 10
	bg := image.Rect(
		(TileSize-textWidth)/2-padding,
		mid-textHeight/2-padding,
		(TileSize+textWidth)/2+padding,
		mid+textHeight/2+padding,
	)
	draw.Draw(img, bg, &image.Uniform{color.RGBA{255, 255, 255, 220}}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I((TileSize - textWidth) / 2),
		Y: fixed.I(mid + textHeight/2 - face.Descent),
	}
	d.DrawString(text)
}
