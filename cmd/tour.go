package main

import (
	"math"
	"time"

	"github.com/aukilabs/globedrape/geo"
	"github.com/aukilabs/globedrape/view"
	"github.com/golang/geo/r3"
)

// tour places cameras above a spherical globe, looking at its center.
type tour struct {
	Radius   float64
	Altitude float64
	Period   time.Duration
	FOV      float64
	Aspect   float64
}

// CameraAt returns a camera at the given altitude above lat, lon. A zero
// altitude uses the tour altitude.
func (t tour) CameraAt(lat, lon, altitude float64) view.Camera {
	if altitude <= 0 {
		altitude = t.Altitude
	}

	eye := geo.Sphere{Radius: t.Radius + altitude}.ToModel(lat, lon)
	up := r3.Vector{Z: 1}
	if math.Abs(lat) > 89 {
		up = r3.Vector{X: 1}
	}

	return view.Camera{
		Position:    eye,
		Orientation: view.LookAt(eye, r3.Vector{}, up),
		FOV:         t.FOV,
		Near:        math.Max(altitude/100, 1e-3),
		Far:         altitude + 2*t.Radius,
		Aspect:      t.Aspect,
	}
}

// CameraAfter returns the camera of the tour after elapsed. The camera
// circles the globe once per period while oscillating in latitude.
func (t tour) CameraAfter(elapsed time.Duration) view.Camera {
	phase := 2 * math.Pi * elapsed.Seconds() / t.Period.Seconds()
	if t.Period <= 0 {
		phase = 0
	}

	lon := geo.NormalizeLon(math.Mod(phase*180/math.Pi, 360))
	lat := 30 * math.Sin(2*phase)
	return t.CameraAt(lat, lon, t.Altitude)
}
