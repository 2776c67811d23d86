// Package tiling partitions raster images into tiles sized from model-space
// measurements, and derives the sampling and level of detail parameters used
// to draw them.
package tiling

import (
	"context"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globedrape/bulk"
)

const (
	// ErrTypeGeometry is the type of errors returned when measurements do
	// not make sense for the image, like a NaN distance or no usable tile
	// size.
	ErrTypeGeometry = "geometry"

	// ErrTypeInvalidConfig is the type of errors returned for invalid tiling
	// settings.
	ErrTypeInvalidConfig = "invalid_config"
)

// Node is a node of a tiling tree. It covers the pixels from Start
// (inclusive) to End (exclusive).
type Node struct {
	Start    [2]int
	End      [2]int
	Depth    int
	Width    float64
	Height   float64
	Children []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tile returns the pixel rectangle covered by the node.
func (n *Node) Tile() bulk.Tile {
	return bulk.Tile{
		MinX:   n.Start[0],
		MinY:   n.Start[1],
		Width:  n.End[0] - n.Start[0],
		Height: n.End[1] - n.Start[1],
	}
}

// Tree is a recursive partition of an image where every leaf measures at
// most MaxDist along both axes.
type Tree struct {
	Root    *Node
	MaxDist float64
}

// Stats describes the shape of a tree.
type Stats struct {
	Nodes    int `json:"nodes"`
	Leaves   int `json:"leaves"`
	MaxDepth int `json:"max_depth"`
}

// NewTree builds the tiling tree of the pixels from start to end.
func NewTree(ctx context.Context, start, end [2]int, metric Metric, maxDist float64) (*Tree, error) {
	if end[0] <= start[0] || end[1] <= start[1] {
		return nil, errors.New("tiling extent is empty").
			WithType(ErrTypeInvalidConfig).
			WithTag("start", start).
			WithTag("end", end)
	}
	if !(maxDist >= 0) {
		return nil, errors.New("tiling max distance must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_dist", maxDist)
	}

	b := treeBuilder{
		metric:  metric,
		maxDist: maxDist,
	}

	root, err := b.build(ctx, start, end, 0)
	if err != nil {
		return nil, err
	}

	return &Tree{
		Root:    root,
		MaxDist: maxDist,
	}, nil
}

// Leaves returns the leaves of the tree in pre-order.
func (t *Tree) Leaves() []*Node {
	var leaves []*Node
	t.walk(func(n *Node) {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
	})
	return leaves
}

// Tiles returns the pixel rectangles of the leaves in pre-order.
func (t *Tree) Tiles() []bulk.Tile {
	leaves := t.Leaves()
	tiles := make([]bulk.Tile, len(leaves))
	for i, l := range leaves {
		tiles[i] = l.Tile()
	}
	return tiles
}

// Stats returns node and leaf counts and the depth of the deepest node.
func (t *Tree) Stats() Stats {
	var s Stats
	t.walk(func(n *Node) {
		s.Nodes++
		if n.IsLeaf() {
			s.Leaves++
		}
		s.MaxDepth = max(s.MaxDepth, n.Depth)
	})
	return s
}

func (t *Tree) walk(fn func(*Node)) {
	var visit func(*Node)
	visit = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(t.Root)
}

type treeBuilder struct {
	metric  Metric
	maxDist float64
}

func (b treeBuilder) build(ctx context.Context, start, end [2]int, depth int) (*Node, error) {
	if ctx.Err() != nil {
		return nil, bulk.Cancelled(ctx)
	}

	midX := (start[0] + end[0] - 1) / 2
	midY := (start[1] + end[1] - 1) / 2

	width, err := b.measure(ctx, start[0], midY, end[0]-1, midY)
	if err != nil {
		return nil, err
	}
	height, err := b.measure(ctx, midX, start[1], midX, end[1]-1)
	if err != nil {
		return nil, err
	}

	n := &Node{
		Start:  start,
		End:    end,
		Depth:  depth,
		Width:  width,
		Height: height,
	}
	if math.Max(width, height) <= b.maxDist {
		return n, nil
	}

	axis := 0
	if height > width {
		axis = 1
	}
	if end[axis]-start[axis] < 2 {
		// The longer measured axis cannot be split further.
		axis = 1 - axis
		if end[axis]-start[axis] < 2 {
			return n, nil
		}
	}

	aspect := width / height
	if aspect < 1 {
		aspect = 1 / aspect
	}

	length := end[axis] - start[axis]
	count := 2
	if r := math.Round(aspect); r > 2 {
		count = int(math.Min(r, float64(length)))
	}
	size := length / count

	for i := 0; i < count; i++ {
		childStart, childEnd := start, end
		childStart[axis] = start[axis] + i*size
		if i < count-1 {
			childEnd[axis] = childStart[axis] + size
		}

		child, err := b.build(ctx, childStart, childEnd, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}

	return n, nil
}

func (b treeBuilder) measure(ctx context.Context, x1, y1, x2, y2 int) (float64, error) {
	d, err := b.metric.Distance(ctx, x1, y1, x2, y2)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(d) {
		return 0, errors.New("tiling metric is not a number").
			WithType(ErrTypeGeometry).
			WithTag("from", [2]int{x1, y1}).
			WithTag("to", [2]int{x2, y2})
	}
	return d, nil
}
