// Package spatial indexes bounded objects for frustum visibility queries.
package spatial

import (
	"sync"

	"github.com/aukilabs/globedrape/view"
	"github.com/dhconnelly/rtreego"
)

const (
	minChildren = 25
	maxChildren = 50

	// R-tree rectangles need non-zero lengths.
	minLength = 1e-9
)

// ID identifies an object inserted in an index.
type ID int

// Index is a 3D spatial index of object bounds.
type Index struct {
	mutex   sync.RWMutex
	tree    *rtreego.Rtree
	entries []*entry
}

type entry struct {
	id     ID
	bounds view.Box
	rect   rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		tree: rtreego.NewTree(3, minChildren, maxChildren),
	}
}

// Insert adds an object with the given bounds and returns its id. Ids are
// assigned sequentially from 0.
func (i *Index) Insert(bounds view.Box) ID {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	e := &entry{
		id:     ID(len(i.entries)),
		bounds: bounds,
		rect:   toRect(bounds),
	}
	i.entries = append(i.entries, e)
	i.tree.Insert(e)
	return e.id
}

// Bounds returns the bounds of the object with the given id.
func (i *Index) Bounds(id ID) (view.Box, bool) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	if id < 0 || int(id) >= len(i.entries) {
		return view.Box{}, false
	}
	return i.entries[id].bounds, true
}

// Len returns the number of indexed objects.
func (i *Index) Len() int {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	return len(i.entries)
}

// Query returns the ids of the objects whose bounds intersect the frustum.
func (i *Index) Query(f view.Frustum) map[ID]struct{} {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	ids := make(map[ID]struct{})
	if len(i.entries) == 0 {
		return ids
	}

	candidates := i.tree.SearchIntersect(toRect(f.Bounds()))
	for _, c := range candidates {
		e := c.(*entry)
		if f.Intersects(e.bounds) {
			ids[e.id] = struct{}{}
		}
	}
	return ids
}

// UpdateVisibility queries the frustum and calls set for every indexed
// object, with true for the objects intersecting it and false for the
// others. It returns the number of visible objects.
func (i *Index) UpdateVisibility(f view.Frustum, set func(id ID, visible bool)) int {
	visible := i.Query(f)

	for id := ID(0); int(id) < i.Len(); id++ {
		_, ok := visible[id]
		set(id, ok)
	}
	return len(visible)
}

// Clear removes every object from the index.
func (i *Index) Clear() {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	i.tree = rtreego.NewTree(3, minChildren, maxChildren)
	i.entries = nil
}

func toRect(b view.Box) rtreego.Rect {
	point := rtreego.Point{b.Min.X, b.Min.Y, b.Min.Z}

	size := b.Size()
	lengths := []float64{
		max(size.X, minLength),
		max(size.Y, minLength),
		max(size.Z, minLength),
	}

	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}
