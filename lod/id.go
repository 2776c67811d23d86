package lod

import "sync"

// IDGenerator hands out sequential node ids, reusing released ones first.
type IDGenerator struct {
	mutex       sync.Mutex
	currentID   uint32
	reusableIDs map[uint32]struct{}
}

// New returns an id.
func (g *IDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for id := range g.reusableIDs {
		delete(g.reusableIDs, id)
		return id
	}

	g.currentID++
	return g.currentID
}

// Release marks the given ids as reusable.
func (g *IDGenerator) Release(ids ...uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.reusableIDs == nil {
		g.reusableIDs = make(map[uint32]struct{})
	}

	for _, id := range ids {
		if id == 0 || id > g.currentID {
			continue
		}
		g.reusableIDs[id] = struct{}{}
	}
}

// InUse returns the number of ids handed out and not released.
func (g *IDGenerator) InUse() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return int(g.currentID) - len(g.reusableIDs)
}
