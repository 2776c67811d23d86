package view

import (
	"math"

	"github.com/golang/geo/r3"
)

// Plane is an oriented plane. Points p with Normal·p - Offset > 0 are
// outside.
type Plane struct {
	Normal r3.Vector
	Offset float64
}

// SignedDistance returns Normal·p - Offset.
func (p Plane) SignedDistance(v r3.Vector) float64 {
	return p.Normal.Dot(v) - p.Offset
}

// Plane indexes within a frustum.
const (
	Near = iota
	Far
	Left
	Right
	Top
	Bottom
)

// Frustum is the convex viewing volume of a camera.
type Frustum struct {
	Planes [6]Plane

	camera Camera
}

// NewFrustum returns the frustum of the given camera.
func NewFrustum(c Camera) Frustum {
	halfV := c.FOV / 2
	halfH := math.Atan(c.Aspect * math.Tan(halfV))

	sinV, cosV := math.Sincos(halfV)
	sinH, cosH := math.Sincos(halfH)

	forward := c.Forward()
	pos := c.Position

	f := Frustum{camera: c}
	f.Planes[Near] = Plane{
		Normal: forward.Mul(-1),
		Offset: -(forward.Dot(pos) + c.Near),
	}
	f.Planes[Far] = Plane{
		Normal: forward,
		Offset: forward.Dot(pos) + c.Far,
	}

	sides := [...]struct {
		index  int
		normal r3.Vector
	}{
		{index: Left, normal: r3.Vector{X: -cosH, Z: -sinH}},
		{index: Right, normal: r3.Vector{X: cosH, Z: -sinH}},
		{index: Top, normal: r3.Vector{Y: cosV, Z: -sinV}},
		{index: Bottom, normal: r3.Vector{Y: -cosV, Z: -sinV}},
	}
	for _, s := range sides {
		n := c.ToWorld(s.normal)
		f.Planes[s.index] = Plane{Normal: n, Offset: n.Dot(pos)}
	}

	return f
}

// Camera returns the camera the frustum was built from.
func (f Frustum) Camera() Camera {
	return f.camera
}

// Contains reports whether p is inside the frustum.
func (f Frustum) Contains(p r3.Vector) bool {
	for _, pl := range f.Planes {
		if pl.SignedDistance(p) > 0 {
			return false
		}
	}
	return true
}

// Intersects reports whether the box may intersect the frustum. For each
// plane it tests the box corner farthest inside; a box is rejected only when
// that corner is outside. Boxes outside a frustum edge or corner can be
// reported as intersecting. A box containing the camera always intersects.
func (f Frustum) Intersects(b Box) bool {
	if b.Contains(f.camera.Position) {
		return true
	}

	for _, pl := range f.Planes {
		c := b.Max
		if pl.Normal.X > 0 {
			c.X = b.Min.X
		}
		if pl.Normal.Y > 0 {
			c.Y = b.Min.Y
		}
		if pl.Normal.Z > 0 {
			c.Z = b.Min.Z
		}

		if pl.SignedDistance(c) > 0 {
			return false
		}
	}
	return true
}

// Corners returns the four near plane corners followed by the four far
// plane corners.
func (f Frustum) Corners() [8]r3.Vector {
	c := f.camera
	tanV := math.Tan(c.FOV / 2)
	right, up, forward := c.Right(), c.Up(), c.Forward()

	var corners [8]r3.Vector
	for i, d := range [2]float64{c.Near, c.Far} {
		center := c.Position.Add(forward.Mul(d))
		h := up.Mul(d * tanV)
		w := right.Mul(d * tanV * c.Aspect)

		corners[i*4+0] = center.Sub(w).Sub(h)
		corners[i*4+1] = center.Add(w).Sub(h)
		corners[i*4+2] = center.Add(w).Add(h)
		corners[i*4+3] = center.Sub(w).Add(h)
	}
	return corners
}

// Bounds returns the axis-aligned box enclosing the frustum.
func (f Frustum) Bounds() Box {
	b := EmptyBox()
	for _, c := range f.Corners() {
		b = b.Extend(c)
	}
	return b
}
