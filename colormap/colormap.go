// Package colormap maps scalar values to palette colors.
package colormap

import (
	"image/color"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// ErrTypeInvalidConfig is the type of errors returned for invalid color
	// mapping settings or palettes.
	ErrTypeInvalidConfig = "invalid_config"

	// MissingIndex is the palette index of values that cannot be mapped.
	MissingIndex = 0
)

// Function is the scale used to map values onto the palette.
type Function string

const (
	Linear Function = "linear"
	Log    Function = "log"
)

// Config describes how values are mapped to a palette.
type Config struct {
	Min      float64  `json:"min"`
	Max      float64  `json:"max"`
	Function Function `json:"function"`
	Palette  string   `json:"palette"`
}

func (c Config) Validate() error {
	switch {
	case c.Function != Linear && c.Function != Log:
		return errors.New("unknown color mapping function").
			WithType(ErrTypeInvalidConfig).
			WithTag("function", c.Function)

	case math.IsNaN(c.Min) || math.IsNaN(c.Max) ||
		math.IsInf(c.Min, 0) || math.IsInf(c.Max, 0) ||
		!(c.Min < c.Max):
		return errors.New("color mapping range is invalid").
			WithType(ErrTypeInvalidConfig).
			WithTag("min", c.Min).
			WithTag("max", c.Max)

	case c.Function == Log && !(c.Min > 0):
		return errors.New("log color mapping requires a positive range").
			WithType(ErrTypeInvalidConfig).
			WithTag("min", c.Min).
			WithTag("max", c.Max)

	case c.Palette == "":
		return errors.New("color mapping has no palette").
			WithType(ErrTypeInvalidConfig)

	default:
		return nil
	}
}

// Mapper maps values to the colors of a palette. Index 0 is the missing
// color and valid values map to indices 1 to N, where N is the number of
// palette colors.
type Mapper struct {
	config  Config
	palette *Palette
	lo      float64
	hi      float64
}

// NewMapper returns a mapper for the given configuration and palette.
func NewMapper(c Config, p *Palette) (*Mapper, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m := &Mapper{
		config:  c,
		palette: p,
		lo:      c.Min,
		hi:      c.Max,
	}
	if c.Function == Log {
		m.lo = math.Log(c.Min)
		m.hi = math.Log(c.Max)
	}
	return m, nil
}

// Config returns the mapper configuration.
func (m *Mapper) Config() Config {
	return m.config
}

// Palette returns the mapper palette.
func (m *Mapper) Palette() *Palette {
	return m.palette
}

// Index returns the palette index of v. Values outside the range are
// clamped to the first and last colors.
func (m *Mapper) Index(v float64) int {
	if math.IsNaN(v) {
		return MissingIndex
	}

	if m.config.Function == Log {
		if v <= 0 {
			return MissingIndex
		}
		v = math.Log(v)
	}

	n := len(m.palette.Colors)
	t := (v - m.lo) / (m.hi - m.lo)
	switch {
	case t <= 0:
		return 1
	case t >= 1:
		return n
	default:
		return min(1+int(t*float64(n)), n)
	}
}

// Color returns the color of v.
func (m *Mapper) Color(v float64) color.RGBA {
	return m.palette.At(m.Index(v))
}
