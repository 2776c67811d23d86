// Package bulk defines batched access to raster values over a pixel
// sub-rectangle sampled at a stride.
package bulk

import (
	"context"
	"fmt"
	"iter"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// ErrTypeCancelled is the type of errors returned when an access was
	// abandoned because its context was cancelled.
	ErrTypeCancelled = "cancelled"

	// ErrTypeIO is the type of errors returned when reading values failed.
	ErrTypeIO = "io"

	// ErrTypeInvalidConfig is the type of errors returned for invalid access
	// descriptors or source settings.
	ErrTypeInvalidConfig = "invalid_config"
)

// IsCancelled reports whether err represents a cancelled operation rather
// than a failure.
func IsCancelled(err error) bool {
	return errors.IsType(err, ErrTypeCancelled) ||
		errors.Is(err, context.Canceled)
}

// Cancelled returns a cancelled error for the given context.
func Cancelled(ctx context.Context) error {
	return errors.New("access cancelled").
		WithType(ErrTypeCancelled).
		Wrap(ctx.Err())
}

// A pixel rectangle.
type Tile struct {
	MinX   int `json:"min_x"`
	MinY   int `json:"min_y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MaxX returns the exclusive right edge of the tile.
func (t Tile) MaxX() int {
	return t.MinX + t.Width
}

// MaxY returns the exclusive bottom edge of the tile.
func (t Tile) MaxY() int {
	return t.MinY + t.Height
}

// Contains reports whether the pixel (x, y) is within the tile.
func (t Tile) Contains(x, y int) bool {
	return x >= t.MinX && x < t.MaxX() &&
		y >= t.MinY && y < t.MaxY()
}

func (t Tile) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", t.Width, t.Height, t.MinX, t.MinY)
}

// Descriptor describes one access: a tile sampled every StrideX pixels
// horizontally and StrideY pixels vertically.
//
// Samples always include both edges of the tile: sample i is at
// min(MinX+i*StrideX, MaxX-1), so the final step may be shorter than the
// stride.
type Descriptor struct {
	Tile    Tile
	StrideX int
	StrideY int
}

// Cols returns the number of sampled columns.
func (d Descriptor) Cols() int {
	return samples(d.Tile.Width, d.StrideX)
}

// Rows returns the number of sampled rows.
func (d Descriptor) Rows() int {
	return samples(d.Tile.Height, d.StrideY)
}

// X returns the image column of the i-th sampled column.
func (d Descriptor) X(i int) int {
	return d.Tile.MinX + min(i*d.StrideX, d.Tile.Width-1)
}

// Y returns the image row of the j-th sampled row.
func (d Descriptor) Y(j int) int {
	return d.Tile.MinY + min(j*d.StrideY, d.Tile.Height-1)
}

// Validate checks that the descriptor is usable against an image of the
// given size.
func (d Descriptor) Validate(width, height int) error {
	switch {
	case d.StrideX < 1 || d.StrideY < 1:
		return errors.New("stride must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("stride_x", d.StrideX).
			WithTag("stride_y", d.StrideY)

	case d.Tile.Width < 1 || d.Tile.Height < 1:
		return errors.New("tile is empty").
			WithType(ErrTypeInvalidConfig).
			WithTag("tile", d.Tile.String())

	case d.Tile.MinX < 0 || d.Tile.MinY < 0 ||
		d.Tile.MaxX() > width || d.Tile.MaxY() > height:
		return errors.New("tile is out of image bounds").
			WithType(ErrTypeInvalidConfig).
			WithTag("tile", d.Tile.String()).
			WithTag("width", width).
			WithTag("height", height)

	default:
		return nil
	}
}

func samples(length, stride int) int {
	if length <= 1 {
		return length
	}
	return (length-2)/stride + 2
}

// A sample coordinate local to an access.
type Coord struct {
	X int
	Y int
}

// Accessor is implemented by sources that produce values of type T in
// batches.
type Accessor[T any] interface {
	// Returns the size of the image in pixels.
	Size() (width, height int)

	// Performs all the work required to read the described samples. It
	// returns a cancelled error when ctx is done before completion.
	Access(ctx context.Context, d Descriptor) (*Result[T], error)
}

// Result holds the values read by one access. It is meant to be read right
// after the access and then dropped.
type Result[T any] struct {
	desc   Descriptor
	cols   int
	rows   int
	values []T
}

// NewResult returns an empty result sized for the given descriptor.
func NewResult[T any](d Descriptor) *Result[T] {
	cols := d.Cols()
	rows := d.Rows()

	return &Result[T]{
		desc:   d,
		cols:   cols,
		rows:   rows,
		values: make([]T, cols*rows),
	}
}

// Descriptor returns the descriptor the result was read with.
func (r *Result[T]) Descriptor() Descriptor {
	return r.desc
}

// Cols returns the number of sampled columns.
func (r *Result[T]) Cols() int {
	return r.cols
}

// Rows returns the number of sampled rows.
func (r *Result[T]) Rows() int {
	return r.rows
}

// Get returns the value of the sample at the given local coordinates. It
// panics when the coordinates are out of range.
func (r *Result[T]) Get(x, y int) T {
	return r.values[r.offset(x, y)]
}

// GetMany returns the values of the samples at the given local coordinates.
func (r *Result[T]) GetMany(coords iter.Seq[Coord]) []T {
	var values []T
	for c := range coords {
		values = append(values, r.Get(c.X, c.Y))
	}
	return values
}

// Set sets the value of the sample at the given local coordinates.
func (r *Result[T]) Set(x, y int, v T) {
	r.values[r.offset(x, y)] = v
}

func (r *Result[T]) offset(x, y int) int {
	if x < 0 || x >= r.cols || y < 0 || y >= r.rows {
		panic(fmt.Sprintf("bulk: sample (%d, %d) out of range %dx%d", x, y, r.cols, r.rows))
	}
	return y*r.cols + x
}

// Grid returns a sequence over every local coordinate of a cols x rows
// access, row by row.
func Grid(cols, rows int) iter.Seq[Coord] {
	return func(yield func(Coord) bool) {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				if !yield(Coord{X: x, Y: y}) {
					return
				}
			}
		}
	}
}

// scan fills a result by calling at for every sample. The context is checked
// once per row.
func scan[T any](ctx context.Context, d Descriptor, width, height int, at func(x, y int) (T, error)) (*Result[T], error) {
	if err := d.Validate(width, height); err != nil {
		return nil, err
	}

	res := NewResult[T](d)
	for j := 0; j < res.rows; j++ {
		if ctx.Err() != nil {
			return nil, Cancelled(ctx)
		}

		y := d.Y(j)
		for i := 0; i < res.cols; i++ {
			x := d.X(i)

			v, err := at(x, y)
			if err != nil {
				return nil, errors.New("reading sample failed").
					WithType(ErrTypeIO).
					WithTag("x", x).
					WithTag("y", y).
					Wrap(err)
			}
			res.values[j*res.cols+i] = v
		}
	}

	return res, nil
}
