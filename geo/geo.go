// Package geo converts between geographic coordinates and model space.
package geo

import (
	"math"

	"github.com/golang/geo/r3"
)

// Translator converts geographic coordinates in degrees to model-space
// points and back.
type Translator interface {
	ToModel(lat, lon float64) r3.Vector
	ToGeo(p r3.Vector) (lat, lon float64)
}

// NormalizeLon returns lon wrapped into [-180, 180).
func NormalizeLon(lon float64) float64 {
	return lon - 360*math.Floor((lon+180)/360)
}

// Sphere projects geographic coordinates onto a sphere centered on the
// origin, with the north pole on +Z.
type Sphere struct {
	Radius float64
}

func (s Sphere) ToModel(lat, lon float64) r3.Vector {
	theta := radians(90 - lat)
	phi := radians(NormalizeLon(lon) + 180)

	sinTheta, cosTheta := math.Sincos(theta)
	sinPhi, cosPhi := math.Sincos(phi)

	return r3.Vector{
		X: s.Radius * sinTheta * cosPhi,
		Y: s.Radius * sinTheta * sinPhi,
		Z: s.Radius * cosTheta,
	}
}

func (s Sphere) ToGeo(p r3.Vector) (lat, lon float64) {
	r := p.Norm()
	if r == 0 {
		return 0, -180
	}

	theta := math.Acos(math.Max(-1, math.Min(1, p.Z/r)))
	phi := math.Atan2(p.Y, p.X)

	return 90 - degrees(theta), NormalizeLon(degrees(phi) - 180)
}

// Equirectangular maps longitude to X and latitude to Y on the Z=0 plane.
type Equirectangular struct {
	// Model units per degree.
	Scale float64
}

func (e Equirectangular) ToModel(lat, lon float64) r3.Vector {
	return r3.Vector{
		X: NormalizeLon(lon) * e.Scale,
		Y: lat * e.Scale,
	}
}

func (e Equirectangular) ToGeo(p r3.Vector) (lat, lon float64) {
	return p.Y / e.Scale, NormalizeLon(p.X / e.Scale)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
