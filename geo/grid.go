package geo

import (
	"fmt"

	"github.com/aukilabs/globedrape/bulk"
	"github.com/golang/geo/r3"
)

// Bounds is a geographic rectangle in degrees.
type Bounds struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

// World covers the whole globe.
var World = Bounds{South: -90, North: 90, West: -180, East: 180}

func (b Bounds) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.South, b.West, b.North, b.East)
}

// Grid is a regular latitude/longitude raster. Row 0 is the northernmost row
// and pixel values are taken at pixel centers.
type Grid struct {
	Bounds Bounds
	Width  int
	Height int
}

// LatLon returns the geographic coordinates of the center of pixel (x, y).
func (g Grid) LatLon(x, y int) (lat, lon float64) {
	lat = g.Bounds.North - (float64(y)+0.5)*(g.Bounds.North-g.Bounds.South)/float64(g.Height)
	lon = g.Bounds.West + (float64(x)+0.5)*(g.Bounds.East-g.Bounds.West)/float64(g.Width)
	return lat, lon
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d@%s", g.Width, g.Height, g.Bounds)
}

// NewGridSource returns a coordinate source producing the model-space
// position of every pixel of the grid.
func NewGridSource(t Translator, g Grid) bulk.Func[r3.Vector] {
	return bulk.Func[r3.Vector]{
		Width:  g.Width,
		Height: g.Height,
		Value: func(x, y int) (r3.Vector, error) {
			return t.ToModel(g.LatLon(x, y)), nil
		},
	}
}
