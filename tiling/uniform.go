package tiling

import (
	"github.com/aukilabs/globedrape/bulk"
)

// Uniform splits a width x height image into square tiles of the given size,
// row by row. Tiles on the right and bottom edges hold the remainder.
func Uniform(width, height, size int) []bulk.Tile {
	if size < 1 || width < 1 || height < 1 {
		return nil
	}

	var tiles []bulk.Tile
	for y := 0; y < height; y += size {
		for x := 0; x < width; x += size {
			tiles = append(tiles, bulk.Tile{
				MinX:   x,
				MinY:   y,
				Width:  min(size, width-x),
				Height: min(size, height-y),
			})
		}
	}
	return tiles
}
