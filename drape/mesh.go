package drape

import (
	"context"

	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/lod"
	"github.com/aukilabs/globedrape/view"
	"github.com/golang/geo/r3"
)

const (
	kindMesh    = "mesh"
	kindTexture = "texture"
)

// Mesh is the triangulated surface of a tile at one level of detail.
type Mesh struct {
	Tile   bulk.Tile
	Level  int
	Stride int
	Cols   int
	Rows   int

	// Row major model-space positions.
	Vertices []r3.Vector

	// Triangle list over Vertices.
	Indices []uint32

	Bounds view.Box
}

// MeshFactory builds the meshes of a tile by sampling its coordinate source
// at a stride doubling with each level.
type MeshFactory struct {
	Coords     bulk.Accessor[r3.Vector]
	Tile       bulk.Tile
	Bounds     view.Box
	Stride     int
	Thresholds lod.Thresholds
}

func (f MeshFactory) LevelFor(camera r3.Vector) int {
	return f.Thresholds.Select(f.Bounds.Distance(camera))
}

func (f MeshFactory) Build(ctx context.Context, level int) (*Mesh, error) {
	stride := f.Stride << level
	d := bulk.Descriptor{
		Tile:    seamless(f.Tile, f.Coords),
		StrideX: stride,
		StrideY: stride,
	}

	res, err := f.Coords.Access(ctx, d)
	if err != nil {
		return nil, err
	}

	cols, rows := res.Cols(), res.Rows()
	m := &Mesh{
		Tile:     f.Tile,
		Level:    level,
		Stride:   stride,
		Cols:     cols,
		Rows:     rows,
		Vertices: make([]r3.Vector, 0, cols*rows),
		Indices:  make([]uint32, 0, max(cols-1, 0)*max(rows-1, 0)*6),
		Bounds:   view.EmptyBox(),
	}

	for _, p := range res.GetMany(bulk.Grid(cols, rows)) {
		m.Vertices = append(m.Vertices, p)
		m.Bounds = m.Bounds.Extend(p)
	}

	for j := 0; j < rows-1; j++ {
		for i := 0; i < cols-1; i++ {
			a := uint32(j*cols + i)
			b := a + 1
			c := a + uint32(cols)
			d := c + 1
			m.Indices = append(m.Indices, a, c, b, b, c, d)
		}
	}
	return m, nil
}

// seamless extends a tile by one pixel to the right and the bottom when the
// image allows it, so that neighboring meshes share their edges.
func seamless[T any](t bulk.Tile, src bulk.Accessor[T]) bulk.Tile {
	w, h := src.Size()
	if t.MaxX() < w {
		t.Width++
	}
	if t.MaxY() < h {
		t.Height++
	}
	return t
}
