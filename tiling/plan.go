package tiling

import (
	"context"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/lod"
	"github.com/aukilabs/globedrape/view"
	"github.com/golang/geo/r3"
)

const (
	maxStartStride = 128
)

// Plan holds the facet sizing of an image: the sampling stride n, the
// aggregation factor m, the per-level camera distance thresholds for meshes
// and textures, and the resulting uniform tiling.
type Plan struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// The finest sampling stride in pixels.
	Stride int `json:"stride"`

	// The number of strides aggregated by the coarsest mesh level.
	Aggregation int `json:"aggregation"`

	// The maximum chord deviation measured for every probed stride.
	StrideDeltas map[int]float64 `json:"stride_deltas"`

	// The maximum chord deviation of each mesh level.
	MeshDeltas []float64 `json:"mesh_deltas"`

	MeshThresholds    lod.Thresholds `json:"mesh_thresholds"`
	TextureThresholds lod.Thresholds `json:"texture_thresholds"`

	// The longest model-space edge of a tile.
	MaxEdge float64 `json:"max_edge"`

	Tiles  []bulk.Tile `json:"-"`
	Bounds []view.Box  `json:"-"`

	lattice *lattice
	pad     float64
}

// NewPlan probes the coordinate source and sizes the facets of its image so
// that the geometric error of a mesh stays within the pixel error budget of
// the view properties.
func NewPlan(ctx context.Context, coords bulk.Accessor[r3.Vector], props view.Properties) (*Plan, error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}

	width, height := coords.Size()
	if width < 2 || height < 2 {
		return nil, errors.New("image is too small to be tiled").
			WithType(ErrTypeInvalidConfig).
			WithTag("width", width).
			WithTag("height", height)
	}
	extent := min(width, height) - 1

	stride, strideDeltas, err := findStride(ctx, coords, props.DeltaMaxHigh(), startStride(min(width, height)), extent)
	if err != nil {
		return nil, err
	}

	grid, err := readLattice(ctx, coords, stride)
	if err != nil {
		return nil, err
	}

	meshDeltas, err := findAggregation(grid, strideDeltas[stride], props.DeltaMaxLow(), stride, extent)
	if err != nil {
		return nil, err
	}
	aggregation := 1 << (len(meshDeltas) - 1)

	p := &Plan{
		Width:        width,
		Height:       height,
		Stride:       stride,
		Aggregation:  aggregation,
		StrideDeltas: strideDeltas,
		MeshDeltas:   meshDeltas,
		lattice:      grid,
		pad:          strideDeltas[stride],
	}

	distances := make([]float64, len(meshDeltas))
	for i, d := range meshDeltas {
		distances[i] = props.CameraDistMin(d)
	}
	p.MeshThresholds = lod.NewThresholds(distances)

	p.Tiles = Uniform(width, height, p.TileSize())
	p.Bounds = make([]view.Box, len(p.Tiles))
	for i, t := range p.Tiles {
		p.Bounds[i] = p.BoundsOf(t)
		p.MaxEdge = math.Max(p.MaxEdge, p.longestEdge(t))
	}
	if math.IsNaN(p.MaxEdge) {
		return nil, errors.New("tile edge length is not a number").
			WithType(ErrTypeGeometry)
	}

	p.TextureThresholds = textureThresholds(props, p.MaxEdge, p.TileSize())
	return p, nil
}

// TileSize returns the edge of a uniform tile in pixels.
func (p *Plan) TileSize() int {
	return p.Stride * p.Aggregation
}

// MeshStride returns the sampling stride of the given mesh level.
func (p *Plan) MeshStride(level int) int {
	return p.Stride << level
}

// BoundsOf returns a model-space box enclosing the surface of the tile.
func (p *Plan) BoundsOf(t bulk.Tile) view.Box {
	i0, j0, i1, j1 := p.lattice.span(t)

	b := view.EmptyBox()
	for j := j0; j <= j1; j++ {
		for i := i0; i <= i1; i++ {
			b = b.Extend(p.lattice.at(i, j))
		}
	}
	return b.Pad(p.pad)
}

// TreeTiles partitions the image with a tiling tree whose leaves measure at
// most the longest uniform tile edge.
func (p *Plan) TreeTiles(ctx context.Context, metric Metric) (*Tree, error) {
	return NewTree(ctx, [2]int{0, 0}, [2]int{p.Width, p.Height}, metric, p.MaxEdge)
}

func (p *Plan) longestEdge(t bulk.Tile) float64 {
	i0, j0, i1, j1 := p.lattice.span(t)
	l := p.lattice

	var top, bottom, left, right float64
	for i := i0; i < i1; i++ {
		top += l.at(i, j0).Distance(l.at(i+1, j0))
		bottom += l.at(i, j1).Distance(l.at(i+1, j1))
	}
	for j := j0; j < j1; j++ {
		left += l.at(i0, j).Distance(l.at(i0, j+1))
		right += l.at(i1, j).Distance(l.at(i1, j+1))
	}
	return max(top, bottom, left, right)
}

func startStride(dim int) int {
	stride := 1
	for stride*2 <= dim/5 {
		stride *= 2
	}
	return min(stride, maxStartStride)
}

// findStride searches the largest power of two stride whose chord deviation
// stays within bound. It doubles the stride after a success and halves it
// after a failure, until a stride is probed twice or exceeds the extent.
func findStride(ctx context.Context, coords bulk.Accessor[r3.Vector], bound float64, start, extent int) (int, map[int]float64, error) {
	tried := make(map[int]float64)
	best := 0

	for stride := start; ; {
		if stride < 1 {
			return 0, nil, errors.New("no usable tile size").
				WithType(ErrTypeGeometry).
				WithTag("max_delta", bound)
		}
		if stride > extent {
			break
		}
		if _, ok := tried[stride]; ok {
			break
		}

		d, err := strideDeviation(ctx, coords, stride)
		if err != nil {
			return 0, nil, err
		}
		if math.IsNaN(d) {
			return 0, nil, errors.New("chord deviation is not a number").
				WithType(ErrTypeGeometry).
				WithTag("stride", stride)
		}
		tried[stride] = d

		if d <= bound {
			best = max(best, stride)
			stride *= 2
		} else {
			stride /= 2
		}
	}

	if best == 0 {
		return 0, nil, errors.New("no usable tile size").
			WithType(ErrTypeGeometry).
			WithTag("extent", extent)
	}
	return best, tried, nil
}

func strideDeviation(ctx context.Context, coords bulk.Accessor[r3.Vector], stride int) (float64, error) {
	if stride == 1 {
		// Pixels are the surface.
		return 0, nil
	}

	l, err := readLattice(ctx, coords, stride/2)
	if err != nil {
		return 0, err
	}
	return l.deviation(2), nil
}

// findAggregation doubles the aggregation of a stride-n grid while its chord
// deviation stays within bound, returning the deviation of every accepted
// aggregation starting with m = 1.
func findAggregation(l *lattice, strideDelta, bound float64, stride, extent int) ([]float64, error) {
	deltas := []float64{strideDelta}

	for m := 1; ; {
		next := m * 2
		if next*stride > extent {
			break
		}

		d := l.deviation(next)
		if math.IsNaN(d) {
			return nil, errors.New("chord deviation is not a number").
				WithType(ErrTypeGeometry).
				WithTag("stride", stride).
				WithTag("aggregation", next)
		}
		if d > bound {
			break
		}

		deltas = append(deltas, d)
		m = next
	}

	return deltas, nil
}

// textureThresholds returns the camera distances at which an edge of the
// given length spans the texture size at each halved level. Level 0 is always
// kept so every tile has a texture.
func textureThresholds(props view.Properties, edge float64, size int) lod.Thresholds {
	var distances []float64
	for level := 0; size>>level >= 1; level++ {
		d := props.CDist(edge, float64(size>>level))
		if level > 0 && d >= props.CMax {
			break
		}
		distances = append(distances, d)
	}
	return lod.NewThresholds(distances)
}

// lattice is an in-memory grid of positions sampled at a fixed stride over a
// whole image. Samples include the last row and column of the image.
type lattice struct {
	stride int
	cols   int
	rows   int

	// The number of leading columns and rows spaced exactly by stride.
	ucols int
	urows int

	points []r3.Vector
}

func readLattice(ctx context.Context, coords bulk.Accessor[r3.Vector], stride int) (*lattice, error) {
	width, height := coords.Size()

	res, err := coords.Access(ctx, bulk.Descriptor{
		Tile:    bulk.Tile{Width: width, Height: height},
		StrideX: stride,
		StrideY: stride,
	})
	if err != nil {
		return nil, err
	}

	l := &lattice{
		stride: stride,
		cols:   res.Cols(),
		rows:   res.Rows(),
		ucols:  (width-1)/stride + 1,
		urows:  (height-1)/stride + 1,
		points: res.GetMany(bulk.Grid(res.Cols(), res.Rows())),
	}
	return l, nil
}

func (l *lattice) at(i, j int) r3.Vector {
	return l.points[j*l.cols+i]
}

// span returns the lattice indices enclosing the tile and its right and
// bottom edges.
func (l *lattice) span(t bulk.Tile) (i0, j0, i1, j1 int) {
	i0 = min(t.MinX/l.stride, l.cols-1)
	j0 = min(t.MinY/l.stride, l.rows-1)
	i1 = min((t.MaxX()+l.stride-1)/l.stride, l.cols-1)
	j1 = min((t.MaxY()+l.stride-1)/l.stride, l.rows-1)
	return i0, j0, i1, j1
}

// deviation returns the largest distance between the midpoint of a cell
// diagonal and the sample at the cell center, over the aligned cells of k x k
// lattice steps. NaN positions yield NaN.
func (l *lattice) deviation(k int) float64 {
	half := k / 2

	var dev float64
	for j := 0; j+k < l.urows; j += k {
		for i := 0; i+k < l.ucols; i += k {
			center := l.at(i+half, j+half)

			d1 := chordDeviation(l.at(i, j), l.at(i+k, j+k), center)
			d2 := chordDeviation(l.at(i+k, j), l.at(i, j+k), center)
			dev = max(dev, d1, d2)
		}
	}
	return dev
}

func chordDeviation(a, b, surface r3.Vector) float64 {
	return a.Add(b).Mul(0.5).Distance(surface)
}
