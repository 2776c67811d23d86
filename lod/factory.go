// Package lod swaps level of detail assets as the camera moves.
package lod

import (
	"context"

	"github.com/golang/geo/r3"
)

// Factory builds the assets of one displayed element.
type Factory[A any] interface {
	// Returns the level needed when the camera is at the given position.
	LevelFor(camera r3.Vector) int

	// Builds the asset of the given level. It is called on a background
	// goroutine and must return a cancelled error when ctx is done.
	Build(ctx context.Context, level int) (A, error)
}

// FixedLevel returns a factory that always asks for the given level.
func FixedLevel[A any](f Factory[A], level int) Factory[A] {
	return fixedLevel[A]{Factory: f, level: level}
}

type fixedLevel[A any] struct {
	Factory[A]
	level int
}

func (f fixedLevel[A]) LevelFor(r3.Vector) int {
	return f.level
}
