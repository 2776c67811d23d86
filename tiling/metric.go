package tiling

import (
	"context"

	"github.com/aukilabs/globedrape/bulk"
	"github.com/golang/geo/r3"
)

// Metric measures the model-space distance between two pixels.
type Metric interface {
	Distance(ctx context.Context, x1, y1, x2, y2 int) (float64, error)
}

// MetricFunc adapts a function to the Metric interface.
type MetricFunc func(ctx context.Context, x1, y1, x2, y2 int) (float64, error)

func (f MetricFunc) Distance(ctx context.Context, x1, y1, x2, y2 int) (float64, error) {
	return f(ctx, x1, y1, x2, y2)
}

// SourceMetric measures distances between the model-space positions read
// from a coordinate source.
type SourceMetric struct {
	Source bulk.Accessor[r3.Vector]
}

func (m SourceMetric) Distance(ctx context.Context, x1, y1, x2, y2 int) (float64, error) {
	// A single access whose corner samples are the two pixels.
	d := bulk.Descriptor{
		Tile: bulk.Tile{
			MinX:   min(x1, x2),
			MinY:   min(y1, y2),
			Width:  abs(x2-x1) + 1,
			Height: abs(y2-y1) + 1,
		},
		StrideX: max(abs(x2-x1), 1),
		StrideY: max(abs(y2-y1), 1),
	}

	res, err := m.Source.Access(ctx, d)
	if err != nil {
		return 0, err
	}

	i1, i2 := 0, res.Cols()-1
	if x1 > x2 {
		i1, i2 = i2, i1
	}
	j1, j2 := 0, res.Rows()-1
	if y1 > y2 {
		j1, j2 = j2, j1
	}

	return res.Get(i1, j1).Distance(res.Get(i2, j2)), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
