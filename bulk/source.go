package bulk

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Func is a source whose values are computed from pixel coordinates.
type Func[T any] struct {
	Width  int
	Height int
	Value  func(x, y int) (T, error)
}

func (f Func[T]) Size() (width, height int) {
	return f.Width, f.Height
}

func (f Func[T]) Access(ctx context.Context, d Descriptor) (*Result[T], error) {
	if f.Value == nil {
		return nil, errors.New("source has no value function").
			WithType(ErrTypeInvalidConfig)
	}
	return scan(ctx, d, f.Width, f.Height, f.Value)
}

// Raster is a source backed by row-major values held in memory.
type Raster[T any] struct {
	Width  int
	Height int
	Values []T
}

// NewRaster returns a zeroed raster of the given size.
func NewRaster[T any](width, height int) *Raster[T] {
	return &Raster[T]{
		Width:  width,
		Height: height,
		Values: make([]T, width*height),
	}
}

func (r *Raster[T]) Size() (width, height int) {
	return r.Width, r.Height
}

func (r *Raster[T]) Access(ctx context.Context, d Descriptor) (*Result[T], error) {
	if len(r.Values) != r.Width*r.Height {
		return nil, errors.New("raster size mismatch").
			WithType(ErrTypeInvalidConfig).
			WithTag("width", r.Width).
			WithTag("height", r.Height).
			WithTag("values", len(r.Values))
	}

	return scan(ctx, d, r.Width, r.Height, func(x, y int) (T, error) {
		return r.Values[y*r.Width+x], nil
	})
}

// Set sets the value at pixel (x, y).
func (r *Raster[T]) Set(x, y int, v T) {
	r.Values[y*r.Width+x] = v
}
