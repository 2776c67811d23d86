// Package view holds the camera geometry used to decide how much detail is
// needed: pixel error budgets, the camera itself and its frustum.
package view

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// ErrTypeInvalidConfig is the type of errors returned for invalid view
	// settings.
	ErrTypeInvalidConfig = "invalid_config"
)

// Properties converts between screen-pixel error and model-space error.
type Properties struct {
	// The vertical resolution of the viewport in pixels.
	VerticalResolution float64 `json:"vertical_resolution"`

	// The maximum tolerated screen error in pixels (tau).
	MaxPixelError float64 `json:"max_pixel_error"`

	// The tangent of half the vertical field of view.
	HalfFOVTangent float64 `json:"half_fov_tangent"`

	// The closest and farthest camera distances considered.
	CMin float64 `json:"cmin"`
	CMax float64 `json:"cmax"`
}

// NewProperties returns properties for a vertical field of view given in
// radians.
func NewProperties(vres, tau, fov, cmin, cmax float64) Properties {
	return Properties{
		VerticalResolution: vres,
		MaxPixelError:      tau,
		HalfFOVTangent:     math.Tan(fov / 2),
		CMin:               cmin,
		CMax:               cmax,
	}
}

func (p Properties) Validate() error {
	switch {
	case !(p.VerticalResolution > 0):
		return errors.New("vertical resolution must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("vertical_resolution", p.VerticalResolution)

	case !(p.MaxPixelError > 0):
		return errors.New("max pixel error must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_pixel_error", p.MaxPixelError)

	case !(p.HalfFOVTangent > 0) || math.IsInf(p.HalfFOVTangent, 0):
		return errors.New("invalid field of view").
			WithType(ErrTypeInvalidConfig).
			WithTag("half_fov_tangent", p.HalfFOVTangent)

	case !(p.CMin >= 0) || !(p.CMin < p.CMax):
		return errors.New("camera distance range is invalid").
			WithType(ErrTypeInvalidConfig).
			WithTag("cmin", p.CMin).
			WithTag("cmax", p.CMax)

	default:
		return nil
	}
}

// CDist returns the camera distance at which a model-space length dModel
// projects to dPixel screen pixels.
func (p Properties) CDist(dModel, dPixel float64) float64 {
	return p.VerticalResolution * dModel / (2 * dPixel * p.HalfFOVTangent)
}

// CameraDistMin returns the camera distance beyond which a model-space error
// of dModel stays within the pixel error budget.
func (p Properties) CameraDistMin(dModel float64) float64 {
	return p.CDist(dModel, p.MaxPixelError)
}

// DeltaMaxHigh returns the largest model-space error tolerated at CMin.
func (p Properties) DeltaMaxHigh() float64 {
	return p.deltaMax(p.CMin)
}

// DeltaMaxLow returns the largest model-space error tolerated at CMax.
func (p Properties) DeltaMaxLow() float64 {
	return p.deltaMax(p.CMax)
}

func (p Properties) deltaMax(distance float64) float64 {
	return distance * 2 * p.MaxPixelError * p.HalfFOVTangent / p.VerticalResolution
}
