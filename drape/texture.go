package drape

import (
	"context"
	"image"

	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/colormap"
	"github.com/aukilabs/globedrape/lod"
	"github.com/aukilabs/globedrape/view"
	"github.com/golang/geo/r3"
)

// Texture is the colored image of a tile at one level of detail. Each level
// halves the resolution of the previous one.
type Texture struct {
	Tile  bulk.Tile
	Level int
	Image *image.RGBA
}

// TextureFactory builds the textures of a tile by mapping the values of its
// data source to palette colors.
type TextureFactory struct {
	Data       bulk.Accessor[float64]
	Mapper     *colormap.Mapper
	Tile       bulk.Tile
	Bounds     view.Box
	Thresholds lod.Thresholds
}

func (f TextureFactory) LevelFor(camera r3.Vector) int {
	return f.Thresholds.Select(f.Bounds.Distance(camera))
}

func (f TextureFactory) Build(ctx context.Context, level int) (*Texture, error) {
	stride := 1 << level
	res, err := f.Data.Access(ctx, bulk.Descriptor{
		Tile:    f.Tile,
		StrideX: stride,
		StrideY: stride,
	})
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, res.Cols(), res.Rows()))
	for c := range bulk.Grid(res.Cols(), res.Rows()) {
		img.SetRGBA(c.X, c.Y, f.Mapper.Color(res.Get(c.X, c.Y)))
	}

	return &Texture{
		Tile:  f.Tile,
		Level: level,
		Image: img,
	}, nil
}
