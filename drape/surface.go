package drape

import (
	"context"

	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/featureflag"
	"github.com/aukilabs/globedrape/lod"
	"github.com/aukilabs/globedrape/spatial"
	"github.com/aukilabs/globedrape/surface"
	"github.com/aukilabs/globedrape/tiling"
	"github.com/aukilabs/globedrape/view"
	"github.com/google/uuid"
)

// Surface is a draped variable made of tiles whose mesh and texture follow
// the camera. Only the tiles in the camera frustum are updated.
//
// Surface methods must be called from the control loop.
type Surface struct {
	id     string
	key    surface.Key
	plan   *tiling.Plan
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	ids   *lod.IDGenerator
	index *spatial.Index
	tiles map[spatial.ID]*tile
	order []spatial.ID

	shown     bool
	closed    bool
	camera    view.Camera
	hasCamera bool
	progress  func(surface.Progress)
}

type tile struct {
	bounds  view.Box
	tile    bulk.Tile
	visible bool
	mesh    *lod.Node[*Mesh]
	texture *lod.Node[*Texture]
}

func newSurface(ctx context.Context, key surface.Key, plan *tiling.Plan, opts Options, ids *lod.IDGenerator) *Surface {
	// Tile builds outlive the build of the surface.
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	return &Surface{
		id:     uuid.NewString(),
		key:    key,
		plan:   plan,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		ids:    ids,
		index:  spatial.NewIndex(),
		tiles:  make(map[spatial.ID]*tile),
	}
}

func (s *Surface) addTile(t bulk.Tile, bounds view.Box, mesh MeshFactory, texture TextureFactory) {
	var textures lod.Factory[*Texture] = texture
	s.opts.Flags.IfSet(featureflag.FlagDisableTextureLOD, func() {
		textures = lod.FixedLevel(textures, 0)
	})

	tl := &tile{
		bounds:  bounds,
		tile:    t,
		mesh:    lod.NewNode[*Mesh](s.ids.New(), kindMesh, mesh, s.opts.Loop, s.opts.Limiter),
		texture: lod.NewNode(s.ids.New(), kindTexture, textures, s.opts.Loop, s.opts.Limiter),
	}
	tl.mesh.OnSettle = s.reportProgress
	tl.texture.OnSettle = s.reportProgress

	id := s.index.Insert(bounds)
	s.tiles[id] = tl
	s.order = append(s.order, id)
}

// ID returns the unique id of the surface instance.
func (s *Surface) ID() string {
	return s.id
}

func (s *Surface) Key() surface.Key {
	return s.key
}

// Plan returns the facet sizing the surface was built with.
func (s *Surface) Plan() *tiling.Plan {
	return s.plan
}

func (s *Surface) Show() {
	if s.closed || s.shown {
		return
	}

	s.shown = true
	if s.hasCamera {
		s.UpdateCamera(s.camera)
	}
}

func (s *Surface) Hide() {
	if !s.shown {
		return
	}

	s.shown = false
	for _, id := range s.order {
		t := s.tiles[id]
		t.visible = false
		t.mesh.Cancel()
		t.texture.Cancel()
	}
	instrumentVisibleTiles(0)
	s.reportProgress()
}

func (s *Surface) BindProgress(fn func(surface.Progress)) {
	s.progress = fn
	s.reportProgress()
}

func (s *Surface) UnbindProgress() {
	s.progress = nil
}

// UpdateCamera updates the visibility of the tiles and asks the visible ones
// for the level of detail needed by the camera. Builds of tiles that left the
// frustum are cancelled. A hidden surface only records the camera.
func (s *Surface) UpdateCamera(c view.Camera) {
	s.camera = c
	s.hasCamera = true
	if !s.shown || s.closed {
		return
	}

	visible := len(s.tiles)
	if s.opts.Flags.IsSet(featureflag.FlagDisableFrustumCulling) {
		for _, t := range s.tiles {
			t.visible = true
		}
	} else {
		visible = s.index.UpdateVisibility(view.NewFrustum(c), func(id spatial.ID, v bool) {
			s.tiles[id].visible = v
		})
	}
	instrumentVisibleTiles(visible)

	for _, id := range s.order {
		t := s.tiles[id]
		if !t.visible {
			t.mesh.Cancel()
			t.texture.Cancel()
			continue
		}

		t.mesh.Update(s.ctx, c.Position)
		t.texture.Update(s.ctx, c.Position)
	}
	s.reportProgress()
}

// Close cancels the tile builds in flight and releases the tiles.
func (s *Surface) Close() {
	if s.closed {
		return
	}

	s.Hide()
	s.closed = true
	s.cancel()

	for _, t := range s.tiles {
		s.ids.Release(t.mesh.ID, t.texture.ID)
	}
	s.tiles = make(map[spatial.ID]*tile)
	s.order = nil
	s.index.Clear()
}

// TileState describes a tile of a surface.
type TileState struct {
	Tile         bulk.Tile `json:"tile"`
	Visible      bool      `json:"visible"`
	MeshLevel    int       `json:"mesh_level"`
	TextureLevel int       `json:"texture_level"`
	Pending      bool      `json:"pending"`
}

// Tiles returns the state of the tiles of the surface. Levels are -1 when
// nothing is shown yet.
func (s *Surface) Tiles() []TileState {
	states := make([]TileState, 0, len(s.order))
	for _, id := range s.order {
		t := s.tiles[id]

		state := TileState{
			Tile:         t.tile,
			Visible:      t.visible,
			MeshLevel:    -1,
			TextureLevel: -1,
		}
		if _, level, ok := t.mesh.Asset(); ok {
			state.MeshLevel = level
		}
		if _, level, ok := t.texture.Asset(); ok {
			state.TextureLevel = level
		}
		_, meshPending := t.mesh.Pending()
		_, texturePending := t.texture.Pending()
		state.Pending = meshPending || texturePending

		states = append(states, state)
	}
	return states
}

// Progress returns the number of tile builds in flight.
func (s *Surface) Progress() surface.Progress {
	p := surface.Progress{Total: 2 * len(s.tiles)}
	for _, t := range s.tiles {
		if _, ok := t.mesh.Pending(); ok {
			p.Pending++
		}
		if _, ok := t.texture.Pending(); ok {
			p.Pending++
		}
	}
	return p
}

func (s *Surface) reportProgress() {
	if s.progress == nil {
		return
	}
	s.progress(s.Progress())
}
