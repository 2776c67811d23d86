package lod

import (
	"math"
)

// Thresholds holds, for each level, the minimum camera distance at which the
// level is acceptable. Level 0 is the most detailed and values never
// decrease with the level.
type Thresholds []float64

// NewThresholds returns thresholds from raw per-level distances, raising any
// value that is lower than the one of the previous level.
func NewThresholds(distances []float64) Thresholds {
	t := make(Thresholds, len(distances))
	var floor float64
	for i, d := range distances {
		floor = math.Max(floor, d)
		t[i] = floor
	}
	return t
}

// Levels returns the number of levels.
func (t Thresholds) Levels() int {
	return len(t)
}

// Select returns the coarsest level acceptable at the given camera distance,
// or level 0 when the camera is closer than every threshold.
func (t Thresholds) Select(distance float64) int {
	level := 0
	for i, d := range t {
		if d > distance {
			break
		}
		level = i
	}
	return level
}
