// Package wmts expands web map tile URL templates.
package wmts

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// ErrTypeInvalidTemplate is the type of errors returned for malformed
	// templates or tile coordinates.
	ErrTypeInvalidTemplate = "invalid_config"

	MaxZoom = 23
)

// Tile identifies a web map tile. Y counts rows from the north.
type Tile struct {
	Zoom int `json:"zoom"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// Rows returns the number of tile rows at the tile zoom level.
func (t Tile) Rows() int {
	return 1 << t.Zoom
}

func (t Tile) Validate() error {
	if t.Zoom < 0 || t.Zoom > MaxZoom {
		return errors.Newf("zoom %d out of range [0, %d]", t.Zoom, MaxZoom).
			WithType(ErrTypeInvalidTemplate)
	}

	n := t.Rows()
	if t.X < 0 || t.X >= n || t.Y < 0 || t.Y >= n {
		return errors.Newf("tile %d/%d out of range for zoom %d", t.X, t.Y, t.Zoom).
			WithType(ErrTypeInvalidTemplate)
	}
	return nil
}

// TileAt returns the Web Mercator tile containing the given coordinates.
func TileAt(lat, lon float64, zoom int) Tile {
	n := float64(int(1) << zoom)
	lat = math.Max(-85.05112878, math.Min(85.05112878, lat))
	latRad := lat * math.Pi / 180

	x := int((lon + 180) / 360 * n)
	y := int((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n)

	last := int(n) - 1
	return Tile{
		Zoom: zoom,
		X:    max(0, min(x, last)),
		Y:    max(0, min(y, last)),
	}
}

// Expand replaces the tokens of a URL template:
//
//	%Y %M %D    year, month and day
//	%J          day of the year
//	%H %m       hour and minute
//	%L %l       zero and one based zoom level
//	%x %y %i    tile column, row from the north, row from the south
//	%%          a percent sign
func Expand(template string, at time.Time, t Tile) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}

		if i+1 >= len(template) {
			return "", errors.New("template ends with a lone percent sign").
				WithType(ErrTypeInvalidTemplate).
				WithTag("template", template)
		}
		i++

		switch template[i] {
		case 'Y':
			fmt.Fprintf(&b, "%04d", at.Year())
		case 'M':
			fmt.Fprintf(&b, "%02d", int(at.Month()))
		case 'D':
			fmt.Fprintf(&b, "%02d", at.Day())
		case 'J':
			fmt.Fprintf(&b, "%03d", at.YearDay())
		case 'H':
			fmt.Fprintf(&b, "%02d", at.Hour())
		case 'm':
			fmt.Fprintf(&b, "%02d", at.Minute())
		case 'L':
			b.WriteString(strconv.Itoa(t.Zoom))
		case 'l':
			b.WriteString(strconv.Itoa(t.Zoom + 1))
		case 'x':
			b.WriteString(strconv.Itoa(t.X))
		case 'y':
			b.WriteString(strconv.Itoa(t.Y))
		case 'i':
			b.WriteString(strconv.Itoa(t.Rows() - 1 - t.Y))
		case '%':
			b.WriteByte('%')
		default:
			return "", errors.Newf("unknown template token %%%c", template[i]).
				WithType(ErrTypeInvalidTemplate).
				WithTag("template", template)
		}
	}

	return b.String(), nil
}
