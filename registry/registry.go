// Package registry provides named, load-once value registries.
package registry

import (
	"slices"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Registry stores values by name. A value is loaded at most once; concurrent
// requests for a name that is being loaded wait for that load.
type Registry[V any] struct {
	mutex  sync.RWMutex
	values map[string]V
	group  singleflight.Group
}

// New returns an empty registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{
		values: make(map[string]V),
	}
}

// Get returns the value registered under name, calling load to produce it
// when it is not registered yet. Failed loads are not registered.
func (r *Registry[V]) Get(name string, load func() (V, error)) (V, error) {
	if v, ok := r.Lookup(name); ok {
		return v, nil
	}

	res, err, _ := r.group.Do(name, func() (any, error) {
		if v, ok := r.Lookup(name); ok {
			return v, nil
		}

		v, err := load()
		if err != nil {
			return nil, errors.New("loading registry value failed").
				WithTag("name", name).
				Wrap(err)
		}

		r.Put(name, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

// Lookup returns the value registered under name.
func (r *Registry[V]) Lookup(name string) (V, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	v, ok := r.values[name]
	return v, ok
}

// Put registers v under name, replacing any previous value.
func (r *Registry[V]) Put(name string, v V) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.values == nil {
		r.values = make(map[string]V)
	}
	r.values[name] = v
}

// Names returns the sorted registered names.
func (r *Registry[V]) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Reset removes every registered value.
func (r *Registry[V]) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.values = make(map[string]V)
}
