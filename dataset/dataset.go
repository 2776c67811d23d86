// Package dataset describes the gridded datasets that can be draped on the
// globe.
package dataset

import (
	"time"

	"github.com/aukilabs/globedrape/bulk"
	"github.com/golang/geo/r3"
)

const (
	// ErrTypeNotFound is the type of errors returned for unknown variables,
	// times or levels.
	ErrTypeNotFound = "not_found"
)

// Well known variable attributes.
const (
	AttrUnits            = "units"
	AttrLongName         = "long_name"
	AttrColormapMin      = "colormap_min"
	AttrColormapMax      = "colormap_max"
	AttrColormapFunction = "colormap_function"
	AttrPalette          = "palette"
)

// Dataset gives access to the variables of a gridded dataset.
type Dataset interface {
	// Returns the names of the variables.
	Variables() []string

	// Returns the times at which a variable is defined.
	Times(variable string) ([]time.Time, error)

	// Returns the vertical levels at which a variable is defined.
	Levels(variable string) ([]float64, error)

	// Returns the attributes of a variable.
	Attributes(variable string) (map[string]string, error)

	// Returns the attributes of the dataset.
	GlobalAttributes() map[string]string

	// Returns the source of the values of a variable at the given time and
	// level indices.
	DataSource(variable string, timeIndex, levelIndex int) (bulk.Accessor[float64], error)

	// Returns the source of the model-space positions of the pixels of a
	// variable.
	CoordinateSource(variable string) (bulk.Accessor[r3.Vector], error)
}
