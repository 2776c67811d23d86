package dataset

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/geo"
	"github.com/aukilabs/globedrape/registry"
	"github.com/golang/geo/r3"
)

// Variable is a variable of a synthetic dataset.
type Variable struct {
	Name       string
	Attributes map[string]string
	Times      []time.Time
	Levels     []float64

	// Returns the value of the variable at the given coordinates and
	// indices. NaN marks missing values.
	Value func(lat, lon float64, timeIndex, levelIndex int) float64
}

// Synthetic is a dataset whose variables are computed from analytic
// functions over a regular latitude/longitude grid.
type Synthetic struct {
	grid       geo.Grid
	translator geo.Translator
	attributes map[string]string
	variables  []Variable
	coords     *registry.Registry[bulk.Accessor[r3.Vector]]
}

// NewSynthetic returns a synthetic dataset. Coordinate sources are shared
// through coords by every dataset that uses the same grid and translator.
func NewSynthetic(g geo.Grid, t geo.Translator, coords *registry.Registry[bulk.Accessor[r3.Vector]], attributes map[string]string, variables ...Variable) *Synthetic {
	return &Synthetic{
		grid:       g,
		translator: t,
		attributes: attributes,
		variables:  variables,
		coords:     coords,
	}
}

func (s *Synthetic) Variables() []string {
	names := make([]string, len(s.variables))
	for i, v := range s.variables {
		names[i] = v.Name
	}
	return names
}

func (s *Synthetic) Times(variable string) ([]time.Time, error) {
	v, err := s.variable(variable)
	if err != nil {
		return nil, err
	}
	return v.Times, nil
}

func (s *Synthetic) Levels(variable string) ([]float64, error) {
	v, err := s.variable(variable)
	if err != nil {
		return nil, err
	}
	return v.Levels, nil
}

func (s *Synthetic) Attributes(variable string) (map[string]string, error) {
	v, err := s.variable(variable)
	if err != nil {
		return nil, err
	}
	return maps.Clone(v.Attributes), nil
}

func (s *Synthetic) GlobalAttributes() map[string]string {
	return maps.Clone(s.attributes)
}

func (s *Synthetic) DataSource(variable string, timeIndex, levelIndex int) (bulk.Accessor[float64], error) {
	v, err := s.variable(variable)
	if err != nil {
		return nil, err
	}

	if err := checkIndex("time", timeIndex, len(v.Times)); err != nil {
		return nil, err
	}
	if err := checkIndex("level", levelIndex, len(v.Levels)); err != nil {
		return nil, err
	}

	g := s.grid
	return bulk.Func[float64]{
		Width:  g.Width,
		Height: g.Height,
		Value: func(x, y int) (float64, error) {
			lat, lon := g.LatLon(x, y)
			return v.Value(lat, lon, timeIndex, levelIndex), nil
		},
	}, nil
}

func (s *Synthetic) CoordinateSource(variable string) (bulk.Accessor[r3.Vector], error) {
	if _, err := s.variable(variable); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s@%T%v", s.grid, s.translator, s.translator)
	return s.coords.Get(key, func() (bulk.Accessor[r3.Vector], error) {
		return geo.NewGridSource(s.translator, s.grid), nil
	})
}

func (s *Synthetic) variable(name string) (Variable, error) {
	for _, v := range s.variables {
		if v.Name == name {
			return v, nil
		}
	}
	return Variable{}, errors.New("variable not found").
		WithType(ErrTypeNotFound).
		WithTag("variable", name)
}

func checkIndex(name string, index, count int) error {
	if count == 0 && index == 0 {
		return nil
	}
	if index < 0 || index >= count {
		return errors.Newf("%s index out of range", name).
			WithType(ErrTypeNotFound).
			WithTag("index", index).
			WithTag("count", count)
	}
	return nil
}

// Demo returns a synthetic dataset with a temperature and a wave height
// variable defined at the given number of hourly steps from start.
func Demo(g geo.Grid, t geo.Translator, coords *registry.Registry[bulk.Accessor[r3.Vector]], start time.Time, steps int) *Synthetic {
	times := make([]time.Time, max(steps, 1))
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}

	temperatureLevels := []float64{0, 1000, 5000}

	temperature := Variable{
		Name: "temperature",
		Attributes: map[string]string{
			AttrUnits:            "degC",
			AttrLongName:         "Air temperature",
			AttrColormapMin:      "-40",
			AttrColormapMax:      "35",
			AttrColormapFunction: "linear",
			AttrPalette:          "rainbow",
		},
		Times:  times,
		Levels: temperatureLevels,
		Value: func(lat, lon float64, ti, li int) float64 {
			latRad, lonRad := lat*math.Pi/180, lon*math.Pi/180
			return 40*math.Cos(latRad) - 15 +
				5*math.Sin(3*lonRad+float64(ti)/2) -
				6.5*temperatureLevels[li]/1000
		},
	}

	waveHeight := Variable{
		Name: "wave_height",
		Attributes: map[string]string{
			AttrUnits:            "m",
			AttrLongName:         "Significant wave height",
			AttrColormapMin:      "0.1",
			AttrColormapMax:      "10",
			AttrColormapFunction: "log",
			AttrPalette:          "rainbow",
		},
		Times: times,
		Value: func(lat, lon float64, ti, li int) float64 {
			latRad, lonRad := lat*math.Pi/180, lon*math.Pi/180
			if isLand(latRad, lonRad) {
				return math.NaN()
			}
			swell := 1 + math.Sin(4*latRad+float64(ti)/3)*math.Cos(2*lonRad)
			return 0.2 + 3*swell*swell
		},
	}

	return NewSynthetic(g, t, coords, map[string]string{
		"title":  "Synthetic demo dataset",
		"source": "analytic",
	}, temperature, waveHeight)
}

func isLand(latRad, lonRad float64) bool {
	return math.Sin(3*lonRad)*math.Cos(2*latRad) > 0.6
}
