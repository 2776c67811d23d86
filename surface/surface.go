// Package surface manages the named surfaces draped on the globe: their
// background construction, a bounded cache of built surfaces and the one
// surface shown at a time.
package surface

import (
	"context"

	"github.com/aukilabs/globedrape/view"
)

// Progress reports how many of the tile builds of a surface are in flight.
type Progress struct {
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

// Done reports whether no build is in flight.
func (p Progress) Done() bool {
	return p.Pending == 0
}

// Surface is a built surface. Its methods are called from the control loop.
type Surface interface {
	// Returns the key the surface was built for.
	Key() Key

	// Shows the surface.
	Show()

	// Hides the surface. A hidden surface does not start builds.
	Hide()

	// Reports build progress to fn until UnbindProgress is called.
	BindProgress(fn func(Progress))

	// Stops reporting build progress.
	UnbindProgress()

	// Adapts the surface to a new camera.
	UpdateCamera(c view.Camera)

	// Releases the resources of the surface.
	Close()
}

// Factory builds surfaces.
type Factory interface {
	// Loads the metadata needed before surfaces can be built.
	Init(ctx context.Context) error

	// Builds the surface identified by key. It runs in the background.
	Build(ctx context.Context, key Key) (Surface, error)
}
