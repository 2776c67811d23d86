package view

import (
	"math"

	"github.com/golang/geo/r3"
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// EmptyBox returns a box that contains nothing and grows with Extend.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: r3.Vector{X: inf, Y: inf, Z: inf},
		Max: r3.Vector{X: -inf, Y: -inf, Z: -inf},
	}
}

// BoxAround returns the box centered on c with the given half extent.
func BoxAround(c r3.Vector, halfExtent float64) Box {
	e := r3.Vector{X: halfExtent, Y: halfExtent, Z: halfExtent}
	return Box{Min: c.Sub(e), Max: c.Add(e)}
}

// IsEmpty reports whether the box contains no point.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend returns the box grown to contain p.
func (b Box) Extend(p r3.Vector) Box {
	return Box{
		Min: r3.Vector{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: r3.Vector{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Pad returns the box grown by d on every side.
func (b Box) Pad(d float64) Box {
	e := r3.Vector{X: d, Y: d, Z: d}
	return Box{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

func (b Box) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box) Size() r3.Vector {
	return b.Max.Sub(b.Min)
}

func (b Box) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Distance returns the distance from p to the closest point of the box, 0
// when p is inside.
func (b Box) Distance(p r3.Vector) float64 {
	closest := r3.Vector{
		X: math.Max(b.Min.X, math.Min(p.X, b.Max.X)),
		Y: math.Max(b.Min.Y, math.Min(p.Y, b.Max.Y)),
		Z: math.Max(b.Min.Z, math.Min(p.Z, b.Max.Z)),
	}
	return p.Distance(closest)
}

// Corners returns the eight corners of the box.
func (b Box) Corners() [8]r3.Vector {
	var corners [8]r3.Vector
	for i := range corners {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		corners[i] = c
	}
	return corners
}
