package view

import (
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func testProperties() Properties {
	return NewProperties(1080, 1, math.Pi/3, 100, 100000)
}

func TestPropertiesValidate(t *testing.T) {
	require.NoError(t, testProperties().Validate())

	tests := []struct {
		name   string
		modify func(p *Properties)
	}{
		{name: "cmin above cmax", modify: func(p *Properties) { p.CMin, p.CMax = p.CMax, p.CMin }},
		{name: "cmin equals cmax", modify: func(p *Properties) { p.CMin = p.CMax }},
		{name: "zero tau", modify: func(p *Properties) { p.MaxPixelError = 0 }},
		{name: "nan tau", modify: func(p *Properties) { p.MaxPixelError = math.NaN() }},
		{name: "zero resolution", modify: func(p *Properties) { p.VerticalResolution = 0 }},
		{name: "zero fov", modify: func(p *Properties) { p.HalfFOVTangent = 0 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := testProperties()
			test.modify(&p)
			err := p.Validate()
			require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
		})
	}
}

func TestPropertiesDistances(t *testing.T) {
	p := testProperties()

	t.Run("camera dist min is strictly increasing", func(t *testing.T) {
		prev := p.CameraDistMin(0)
		for d := 0.001; d < 1e6; d *= 1.7 {
			cur := p.CameraDistMin(d)
			require.Greater(t, cur, prev)
			prev = cur
		}
	})

	t.Run("delta max inverts camera dist min", func(t *testing.T) {
		require.InDelta(t, p.CMin, p.CameraDistMin(p.DeltaMaxHigh()), 1e-9)
		require.InDelta(t, p.CMax, p.CameraDistMin(p.DeltaMaxLow()), 1e-6)
		require.Less(t, p.DeltaMaxHigh(), p.DeltaMaxLow())
	})

	t.Run("projection scales with pixel error", func(t *testing.T) {
		require.InDelta(t, p.CDist(10, 1), 2*p.CDist(10, 2), 1e-9)
	})
}

func testCamera() Camera {
	return Camera{
		Position:    r3.Vector{},
		Orientation: mgl64.Ident3(),
		FOV:         math.Pi / 2,
		Near:        0.1,
		Far:         100,
		Aspect:      1,
	}
}

func TestFrustumIntersects(t *testing.T) {
	f := NewFrustum(testCamera())

	t.Run("box containing the camera", func(t *testing.T) {
		require.True(t, f.Intersects(BoxAround(r3.Vector{}, 1)))
	})

	t.Run("box containing the camera closer than near", func(t *testing.T) {
		b := BoxAround(r3.Vector{}, 0.05)
		require.True(t, b.Contains(r3.Vector{}))
		require.True(t, f.Intersects(b))
	})

	t.Run("box in front", func(t *testing.T) {
		require.True(t, f.Intersects(BoxAround(r3.Vector{Z: 50}, 1)))
	})

	t.Run("box behind the far plane", func(t *testing.T) {
		require.False(t, f.Intersects(BoxAround(r3.Vector{Z: 150}, 1)))
	})

	t.Run("box behind the camera", func(t *testing.T) {
		require.False(t, f.Intersects(BoxAround(r3.Vector{Z: -10}, 1)))
	})

	t.Run("boxes outside side planes", func(t *testing.T) {
		require.False(t, f.Intersects(BoxAround(r3.Vector{X: 30, Z: 10}, 1)))
		require.False(t, f.Intersects(BoxAround(r3.Vector{X: -30, Z: 10}, 1)))
		require.False(t, f.Intersects(BoxAround(r3.Vector{Y: 30, Z: 10}, 1)))
		require.False(t, f.Intersects(BoxAround(r3.Vector{Y: -30, Z: 10}, 1)))
	})

	t.Run("box straddling a side plane", func(t *testing.T) {
		require.True(t, f.Intersects(BoxAround(r3.Vector{X: 10, Z: 10}, 1)))
	})
}

func TestFrustumOrientation(t *testing.T) {
	c := testCamera()
	c.Position = r3.Vector{X: 10}
	c.Orientation = LookAt(c.Position, r3.Vector{}, r3.Vector{Z: 1})

	require.InDelta(t, -1, c.Forward().X, 1e-12)
	require.InDelta(t, 1, c.Up().Z, 1e-12)

	f := NewFrustum(c)
	require.True(t, f.Contains(r3.Vector{}))
	require.False(t, f.Contains(r3.Vector{X: 20}))
	require.True(t, f.Intersects(BoxAround(r3.Vector{}, 1)))
	require.False(t, f.Intersects(BoxAround(r3.Vector{X: 20}, 1)))

	for i := 0; i < 8; i++ {
		p := f.Corners()[i]
		for _, pl := range f.Planes {
			require.LessOrEqual(t, pl.SignedDistance(p), 1e-9)
		}
	}

	b := f.Bounds()
	require.InDelta(t, 10-100, b.Min.X, 1e-9)
	require.InDelta(t, 10-0.1, b.Max.X, 1e-9)
}

func TestOrientationFromQuat(t *testing.T) {
	q := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	c := testCamera()
	c.Orientation = OrientationFromQuat(q)

	// Yawing +Z by 90 degrees around +Y points forward along +X.
	require.InDelta(t, 1, c.Forward().X, 1e-12)
}

func TestBox(t *testing.T) {
	b := EmptyBox()
	require.True(t, b.IsEmpty())

	b = b.Extend(r3.Vector{X: 1, Y: 2, Z: 3}).Extend(r3.Vector{X: -1})
	require.False(t, b.IsEmpty())
	require.Equal(t, r3.Vector{X: -1}, b.Min)
	require.Equal(t, r3.Vector{X: 1, Y: 2, Z: 3}, b.Max)
	require.True(t, b.Contains(r3.Vector{Y: 1, Z: 1}))
	require.Equal(t, float64(0), b.Distance(r3.Vector{Y: 1, Z: 1}))
	require.Equal(t, float64(2), b.Distance(r3.Vector{X: 3, Y: 1, Z: 1}))
	require.Equal(t, b, b.Union(EmptyBox()))
}
