package wmts

import (
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	at := time.Date(2024, time.February, 3, 4, 5, 0, 0, time.UTC)

	tests := []struct {
		template string
		tile     Tile
		expected string
	}{
		{
			template: "https://tiles.example.com/%Y-%M-%D/%L/%y/%x.png",
			tile:     Tile{Zoom: 3, X: 5, Y: 1},
			expected: "https://tiles.example.com/2024-02-03/3/1/5.png",
		},
		{
			template: "/t/%Y%J/%H%m/%l/%x/%i",
			tile:     Tile{Zoom: 3, X: 5, Y: 1},
			expected: "/t/2024034/0405/4/5/6",
		},
		{
			template: "/100%%/%x",
			tile:     Tile{Zoom: 0},
			expected: "/100%/0",
		},
	}

	for _, test := range tests {
		t.Run(test.template, func(t *testing.T) {
			got, err := Expand(test.template, at, test.tile)
			require.NoError(t, err)
			require.Equal(t, test.expected, got)
		})
	}

	t.Run("invalid templates", func(t *testing.T) {
		_, err := Expand("/%q", at, Tile{})
		require.True(t, errors.IsType(err, ErrTypeInvalidTemplate))

		_, err = Expand("/%", at, Tile{})
		require.True(t, errors.IsType(err, ErrTypeInvalidTemplate))

		_, err = Expand("/%x", at, Tile{Zoom: 1, X: 2})
		require.True(t, errors.IsType(err, ErrTypeInvalidTemplate))
	})
}

func TestTileAt(t *testing.T) {
	require.Equal(t, Tile{Zoom: 0}, TileAt(10, 10, 0))
	require.Equal(t, Tile{Zoom: 1, X: 1, Y: 0}, TileAt(45, 90, 1))
	require.Equal(t, Tile{Zoom: 1, X: 0, Y: 1}, TileAt(-45, -90, 1))
	require.Equal(t, Tile{Zoom: 2, X: 3, Y: 3}, TileAt(-90, 180, 2))
}
