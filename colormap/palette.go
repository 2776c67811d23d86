package colormap

import (
	"image/color"
	"io"
	"io/fs"
	"path"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globedrape/registry"
	"github.com/segmentio/encoding/json"
)

// Palette is an ordered list of colors with a color for missing values.
type Palette struct {
	Name    string
	Missing color.RGBA
	Colors  []color.RGBA
}

func (p *Palette) Validate() error {
	if p == nil || len(p.Colors) == 0 {
		return errors.New("palette has no colors").
			WithType(ErrTypeInvalidConfig)
	}
	return nil
}

// At returns the color at the given index, 0 being the missing color.
func (p *Palette) At(i int) color.RGBA {
	if i <= MissingIndex || i > len(p.Colors) {
		return p.Missing
	}
	return p.Colors[i-1]
}

type paletteFile struct {
	Name    string      `json:"name"`
	Missing *colorFile  `json:"missing"`
	Colors  []colorFile `json:"colors"`
}

type colorFile struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

func (c colorFile) rgba() (color.RGBA, error) {
	for _, v := range [...]int{c.Red, c.Green, c.Blue} {
		if v < 0 || v > 255 {
			return color.RGBA{}, errors.New("color component out of range").
				WithType(ErrTypeInvalidConfig).
				WithTag("red", c.Red).
				WithTag("green", c.Green).
				WithTag("blue", c.Blue)
		}
	}
	return color.RGBA{R: uint8(c.Red), G: uint8(c.Green), B: uint8(c.Blue), A: 255}, nil
}

// ReadPalette decodes a JSON palette.
func ReadPalette(r io.Reader) (*Palette, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New("reading palette failed").Wrap(err)
	}

	var f paletteFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.New("decoding palette failed").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}
	if f.Name == "" {
		return nil, errors.New("palette has no name").
			WithType(ErrTypeInvalidConfig)
	}

	p := &Palette{Name: f.Name}
	if f.Missing != nil {
		if p.Missing, err = f.Missing.rgba(); err != nil {
			return nil, err
		}
	}
	for _, c := range f.Colors {
		rgba, err := c.rgba()
		if err != nil {
			return nil, errors.New("invalid palette color").
				WithType(ErrTypeInvalidConfig).
				WithTag("palette", f.Name).
				Wrap(err)
		}
		p.Colors = append(p.Colors, rgba)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Palettes loads palettes by name, once each. Names are looked up as
// "<name>.json" files in FS, then among the built-in palettes.
type Palettes struct {
	FS fs.FS

	registry registry.Registry[*Palette]
}

// NewPalettes returns palettes loaded from fsys, which may be nil.
func NewPalettes(fsys fs.FS) *Palettes {
	return &Palettes{FS: fsys}
}

// Get returns the named palette.
func (p *Palettes) Get(name string) (*Palette, error) {
	return p.registry.Get(name, func() (*Palette, error) {
		return p.load(name)
	})
}

// Names returns the names of the loaded palettes.
func (p *Palettes) Names() []string {
	return p.registry.Names()
}

func (p *Palettes) load(name string) (*Palette, error) {
	if p.FS != nil {
		f, err := p.FS.Open(path.Clean(name) + ".json")
		switch {
		case err == nil:
			defer f.Close()

			palette, err := ReadPalette(f)
			if err != nil {
				return nil, err
			}
			if palette.Name != name {
				return nil, errors.New("palette name does not match its file").
					WithType(ErrTypeInvalidConfig).
					WithTag("name", name).
					WithTag("file_name", palette.Name)
			}
			return palette, nil

		case !errors.Is(err, fs.ErrNotExist):
			return nil, errors.New("opening palette failed").
				WithTag("name", name).
				Wrap(err)
		}
	}

	if build, ok := builtins[name]; ok {
		return build(), nil
	}

	return nil, errors.New("palette not found").
		WithType(ErrTypeInvalidConfig).
		WithTag("name", name)
}

var builtins = map[string]func() *Palette{
	"grayscale": func() *Palette {
		p := &Palette{Name: "grayscale", Missing: color.RGBA{R: 255, A: 255}}
		for i := 0; i < 256; i += 15 {
			v := uint8(i)
			p.Colors = append(p.Colors, color.RGBA{R: v, G: v, B: v, A: 255})
		}
		return p
	},
	"rainbow": func() *Palette {
		return &Palette{
			Name:    "rainbow",
			Missing: color.RGBA{A: 0},
			Colors: []color.RGBA{
				{R: 48, G: 18, B: 59, A: 255},
				{R: 70, G: 107, B: 227, A: 255},
				{R: 40, G: 187, B: 236, A: 255},
				{R: 50, G: 241, B: 152, A: 255},
				{R: 164, G: 252, B: 60, A: 255},
				{R: 237, G: 208, B: 58, A: 255},
				{R: 251, G: 128, B: 34, A: 255},
				{R: 210, G: 49, B: 5, A: 255},
				{R: 122, G: 4, B: 3, A: 255},
			},
		}
	},
}
