package colormap

import (
	"image/color"
	"math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testPalette(n int) *Palette {
	p := &Palette{Name: "test", Missing: color.RGBA{R: 1}}
	for i := 0; i < n; i++ {
		p.Colors = append(p.Colors, color.RGBA{G: uint8(i), A: 255})
	}
	return p
}

func TestLinearMapping(t *testing.T) {
	m, err := NewMapper(Config{Min: 0, Max: 10, Function: Linear, Palette: "test"}, testPalette(16))
	require.NoError(t, err)

	require.Equal(t, MissingIndex, m.Index(math.NaN()))
	require.Equal(t, 1, m.Index(0))
	require.Equal(t, 16, m.Index(10))
	require.Equal(t, 1, m.Index(-5))
	require.Equal(t, 16, m.Index(50))

	prev := m.Index(0)
	for v := 0.0; v <= 10; v += 0.01 {
		i := m.Index(v)
		require.GreaterOrEqual(t, i, prev)
		require.GreaterOrEqual(t, i, 1)
		require.LessOrEqual(t, i, 16)
		prev = i
	}

	require.Equal(t, color.RGBA{R: 1}, m.Color(math.NaN()))
	require.Equal(t, color.RGBA{G: 15, A: 255}, m.Color(10))
}

func TestLogMapping(t *testing.T) {
	t.Run("requires a positive range", func(t *testing.T) {
		_, err := NewMapper(Config{Min: 0, Max: 10, Function: Log, Palette: "test"}, testPalette(4))
		require.True(t, errors.IsType(err, ErrTypeInvalidConfig))

		_, err = NewMapper(Config{Min: -1, Max: 10, Function: Log, Palette: "test"}, testPalette(4))
		require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
	})

	t.Run("maps the range ends", func(t *testing.T) {
		m, err := NewMapper(Config{Min: 1, Max: 1000, Function: Log, Palette: "test"}, testPalette(3))
		require.NoError(t, err)

		require.Equal(t, 1, m.Index(1))
		require.Equal(t, 2, m.Index(30))
		require.Equal(t, 2, m.Index(99))
		require.Equal(t, 3, m.Index(1000))
		require.Equal(t, MissingIndex, m.Index(0))
		require.Equal(t, MissingIndex, m.Index(math.NaN()))
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []Config{
		{Min: 1, Max: 1, Function: Linear, Palette: "p"},
		{Min: 2, Max: 1, Function: Linear, Palette: "p"},
		{Min: math.NaN(), Max: 1, Function: Linear, Palette: "p"},
		{Min: 0, Max: 1, Function: "cubic", Palette: "p"},
		{Min: 0, Max: 1, Function: Linear},
	}

	for _, c := range tests {
		require.True(t, errors.IsType(c.Validate(), ErrTypeInvalidConfig), "%+v", c)
	}

	_, err := NewMapper(Config{Min: 0, Max: 1, Function: Linear, Palette: "p"}, &Palette{Name: "p"})
	require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
}

func TestReadPalette(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := ReadPalette(strings.NewReader(`{
			"name": "sea",
			"missing": {"red": 10, "green": 20, "blue": 30},
			"colors": [
				{"red": 0, "green": 0, "blue": 128},
				{"red": 255, "green": 255, "blue": 255}
			]
		}`))
		require.NoError(t, err)
		require.Equal(t, "sea", p.Name)
		require.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, p.At(0))
		require.Equal(t, color.RGBA{B: 128, A: 255}, p.At(1))
		require.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, p.At(2))
	})

	t.Run("component out of range", func(t *testing.T) {
		_, err := ReadPalette(strings.NewReader(`{"name": "bad", "colors": [{"red": 256}]}`))
		require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
	})

	t.Run("no colors", func(t *testing.T) {
		_, err := ReadPalette(strings.NewReader(`{"name": "empty", "colors": []}`))
		require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ReadPalette(strings.NewReader(`{"name": `))
		require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
	})
}

func TestPalettes(t *testing.T) {
	fsys := fstest.MapFS{
		"sea.json":   {Data: []byte(`{"name": "sea", "colors": [{"red": 1, "green": 2, "blue": 3}]}`)},
		"wrong.json": {Data: []byte(`{"name": "other", "colors": [{"red": 1, "green": 2, "blue": 3}]}`)},
	}
	palettes := NewPalettes(fsys)

	p1, err := palettes.Get("sea")
	require.NoError(t, err)
	p2, err := palettes.Get("sea")
	require.NoError(t, err)
	require.Same(t, p1, p2)

	rainbow, err := palettes.Get("rainbow")
	require.NoError(t, err)
	require.Len(t, rainbow.Colors, 9)

	_, err = palettes.Get("wrong")
	require.Error(t, err)

	_, err = palettes.Get("missing")
	require.Error(t, err)

	require.Equal(t, []string{"rainbow", "sea"}, palettes.Names())

	builtinOnly := NewPalettes(nil)
	gray, err := builtinOnly.Get("grayscale")
	require.NoError(t, err)
	require.NotEmpty(t, gray.Colors)
}
