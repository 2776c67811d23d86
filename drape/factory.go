// Package drape builds the surfaces that drape dataset variables on the
// globe: a tiled mesh following the coordinates of the variable, textured
// with its color mapped values.
package drape

import (
	"context"
	"strconv"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/colormap"
	"github.com/aukilabs/globedrape/dataset"
	"github.com/aukilabs/globedrape/featureflag"
	"github.com/aukilabs/globedrape/lod"
	"github.com/aukilabs/globedrape/registry"
	"github.com/aukilabs/globedrape/surface"
	"github.com/aukilabs/globedrape/task"
	"github.com/aukilabs/globedrape/tiling"
	"github.com/aukilabs/globedrape/view"
	"github.com/golang/geo/r3"
	"golang.org/x/sync/errgroup"
)

const (
	// ErrTypeInvalidConfig is the type of errors returned for invalid
	// factory options or variable attributes.
	ErrTypeInvalidConfig = "invalid_config"

	TilingUniform = "uniform"
	TilingTree    = "tree"

	defaultPalette         = "grayscale"
	defaultPlanConcurrency = 4
)

// Options configures a factory.
type Options struct {
	Dataset  dataset.Dataset
	View     view.Properties
	Palettes *colormap.Palettes

	// The loop on which tile builds are delivered.
	Loop task.Poster

	// Bounds the number of tile builds running at once.
	Limiter *task.Limiter

	Flags featureflag.FeatureFlag

	// The tiling mode: TilingUniform or TilingTree. Defaults to uniform.
	Tiling string

	// The number of variables sized at once during Init.
	PlanConcurrency int
}

func (o Options) validate() error {
	switch {
	case o.Dataset == nil:
		return errors.New("dataset is missing").
			WithType(ErrTypeInvalidConfig)

	case o.Palettes == nil:
		return errors.New("palettes are missing").
			WithType(ErrTypeInvalidConfig)

	case o.Loop == nil:
		return errors.New("control loop is missing").
			WithType(ErrTypeInvalidConfig)

	case o.Tiling != "" && o.Tiling != TilingUniform && o.Tiling != TilingTree:
		return errors.New("unknown tiling mode").
			WithType(ErrTypeInvalidConfig).
			WithTag("tiling", o.Tiling)

	default:
		return o.View.Validate()
	}
}

// Factory builds draped surfaces from the variables of a dataset.
type Factory struct {
	opts  Options
	plans registry.Registry[*tiling.Plan]
	ids   lod.IDGenerator
}

// NewFactory returns a factory configured with opts.
func NewFactory(opts Options) (*Factory, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.Tiling == "" {
		opts.Tiling = TilingUniform
	}
	if opts.PlanConcurrency <= 0 {
		opts.PlanConcurrency = defaultPlanConcurrency
	}

	return &Factory{opts: opts}, nil
}

// Init sizes the facets of every variable of the dataset.
func (f *Factory) Init(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.PlanConcurrency)

	for _, variable := range f.opts.Dataset.Variables() {
		g.Go(func() error {
			_, err := f.Plan(ctx, variable)
			return err
		})
	}
	return g.Wait()
}

// Plan returns the facet sizing of a variable. It is computed once.
func (f *Factory) Plan(ctx context.Context, variable string) (*tiling.Plan, error) {
	return f.plans.Get(variable, func() (*tiling.Plan, error) {
		coords, err := f.opts.Dataset.CoordinateSource(variable)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		plan, err := tiling.NewPlan(ctx, coords, f.opts.View)
		if bulk.IsCancelled(err) {
			return nil, err
		}
		if err != nil {
			return nil, errors.New("sizing facets failed").
				WithTag("variable", variable).
				Wrap(err)
		}
		instrumentPlan(start)

		logs.WithTag("variable", variable).
			WithTag("stride", plan.Stride).
			WithTag("aggregation", plan.Aggregation).
			WithTag("tiles", len(plan.Tiles)).
			WithTag("mesh_levels", plan.MeshThresholds.Levels()).
			WithTag("texture_levels", plan.TextureThresholds.Levels()).
			Info("facets sized")
		return plan, nil
	})
}

// Build builds the surface of the variable, time and level identified by
// key. Absent indices select the first time and level.
func (f *Factory) Build(ctx context.Context, key surface.Key) (surface.Surface, error) {
	plan, err := f.Plan(ctx, key.Name)
	if err != nil {
		return nil, err
	}

	coords, err := f.opts.Dataset.CoordinateSource(key.Name)
	if err != nil {
		return nil, err
	}

	data, err := f.opts.Dataset.DataSource(key.Name, index(key.Time), index(key.Level))
	if err != nil {
		return nil, err
	}

	attrs, err := f.opts.Dataset.Attributes(key.Name)
	if err != nil {
		return nil, err
	}

	mapper, err := f.mapper(attrs)
	if err != nil {
		return nil, errors.New("creating color mapper failed").
			WithTag("variable", key.Name).
			Wrap(err)
	}

	tiles, err := f.tiles(ctx, plan, coords)
	if err != nil {
		return nil, err
	}

	s := newSurface(ctx, key, plan, f.opts, &f.ids)
	for _, t := range tiles {
		if ctx.Err() != nil {
			s.Close()
			return nil, bulk.Cancelled(ctx)
		}

		bounds := plan.BoundsOf(t)
		s.addTile(t, bounds,
			MeshFactory{
				Coords:     coords,
				Tile:       t,
				Bounds:     bounds,
				Stride:     plan.Stride,
				Thresholds: plan.MeshThresholds,
			},
			TextureFactory{
				Data:       data,
				Mapper:     mapper,
				Tile:       t,
				Bounds:     bounds,
				Thresholds: plan.TextureThresholds,
			},
		)
	}

	logs.WithTag("key", key).
		WithTag("surface_id", s.ID()).
		WithTag("tiles", len(tiles)).
		Debug("surface built")
	return s, nil
}

// Nodes returns the number of level of detail nodes held by the surfaces
// that are not closed.
func (f *Factory) Nodes() int {
	return f.ids.InUse()
}

func (f *Factory) tiles(ctx context.Context, plan *tiling.Plan, coords bulk.Accessor[r3.Vector]) ([]bulk.Tile, error) {
	if f.opts.Tiling != TilingTree {
		return plan.Tiles, nil
	}

	tree, err := plan.TreeTiles(ctx, tiling.SourceMetric{Source: coords})
	if err != nil {
		return nil, err
	}
	return tree.Tiles(), nil
}

func (f *Factory) mapper(attrs map[string]string) (*colormap.Mapper, error) {
	lo, err := parseAttr(attrs, dataset.AttrColormapMin)
	if err != nil {
		return nil, err
	}

	hi, err := parseAttr(attrs, dataset.AttrColormapMax)
	if err != nil {
		return nil, err
	}

	c := colormap.Config{
		Min:      lo,
		Max:      hi,
		Function: colormap.Function(attrs[dataset.AttrColormapFunction]),
		Palette:  attrs[dataset.AttrPalette],
	}
	if c.Function == "" {
		c.Function = colormap.Linear
	}
	if c.Palette == "" {
		c.Palette = defaultPalette
	}

	palette, err := f.opts.Palettes.Get(c.Palette)
	if err != nil {
		return nil, err
	}
	return colormap.NewMapper(c, palette)
}

func parseAttr(attrs map[string]string, name string) (float64, error) {
	raw, ok := attrs[name]
	if !ok {
		return 0, errors.New("attribute is missing").
			WithType(ErrTypeInvalidConfig).
			WithTag("attribute", name)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("attribute is not a number").
			WithType(ErrTypeInvalidConfig).
			WithTag("attribute", name).
			Wrap(err)
	}
	return v, nil
}

func index(i int) int {
	if i == surface.NoIndex {
		return 0
	}
	return i
}
