package dataset

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/geo"
	"github.com/aukilabs/globedrape/registry"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func newDemo(coords *registry.Registry[bulk.Accessor[r3.Vector]]) *Synthetic {
	g := geo.Grid{Bounds: geo.World, Width: 90, Height: 45}
	return Demo(g, geo.Sphere{Radius: 1}, coords, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 4)
}

func TestDemo(t *testing.T) {
	coords := registry.New[bulk.Accessor[r3.Vector]]()
	ds := newDemo(coords)

	require.Equal(t, []string{"temperature", "wave_height"}, ds.Variables())
	require.Equal(t, "analytic", ds.GlobalAttributes()["source"])

	times, err := ds.Times("temperature")
	require.NoError(t, err)
	require.Len(t, times, 4)
	require.Equal(t, time.Hour, times[1].Sub(times[0]))

	levels, err := ds.Levels("temperature")
	require.NoError(t, err)
	require.Len(t, levels, 3)

	attrs, err := ds.Attributes("wave_height")
	require.NoError(t, err)
	require.Equal(t, "log", attrs[AttrColormapFunction])

	t.Run("data source", func(t *testing.T) {
		src, err := ds.DataSource("temperature", 1, 2)
		require.NoError(t, err)

		w, h := src.Size()
		require.Equal(t, 90, w)
		require.Equal(t, 45, h)

		res, err := src.Access(context.Background(), bulk.Descriptor{
			Tile:    bulk.Tile{Width: w, Height: h},
			StrideX: 10,
			StrideY: 10,
		})
		require.NoError(t, err)
		for _, v := range res.GetMany(bulk.Grid(res.Cols(), res.Rows())) {
			require.False(t, math.IsNaN(v))
		}
	})

	t.Run("wave height has missing values over land", func(t *testing.T) {
		src, err := ds.DataSource("wave_height", 0, 0)
		require.NoError(t, err)

		res, err := src.Access(context.Background(), bulk.Descriptor{
			Tile:    bulk.Tile{Width: 90, Height: 45},
			StrideX: 1,
			StrideY: 1,
		})
		require.NoError(t, err)

		var missing, valid int
		for _, v := range res.GetMany(bulk.Grid(res.Cols(), res.Rows())) {
			if math.IsNaN(v) {
				missing++
				continue
			}
			valid++
			require.Greater(t, v, 0.0)
		}
		require.NotZero(t, missing)
		require.NotZero(t, valid)
	})

	t.Run("coordinate sources are shared", func(t *testing.T) {
		_, err := ds.CoordinateSource("temperature")
		require.NoError(t, err)
		_, err = newDemo(coords).CoordinateSource("wave_height")
		require.NoError(t, err)
		require.Len(t, coords.Names(), 1)
	})

	t.Run("unknown lookups", func(t *testing.T) {
		_, err := ds.Times("salinity")
		require.True(t, errors.IsType(err, ErrTypeNotFound))

		_, err = ds.DataSource("temperature", 4, 0)
		require.True(t, errors.IsType(err, ErrTypeNotFound))

		_, err = ds.DataSource("temperature", 0, -1)
		require.True(t, errors.IsType(err, ErrTypeNotFound))

		_, err = ds.CoordinateSource("salinity")
		require.True(t, errors.IsType(err, ErrTypeNotFound))
	})
}
